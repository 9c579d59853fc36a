package store

import (
	"context"
	"fmt"

	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
)

func (s *Store) UpsertGame(ctx context.Context, g model.Game) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO games (game_id, sport, home_team, away_team, start_time, status, home_score, away_score, model_prob_home, updated_at)
		VALUES (:game_id, :sport, :home_team, :away_team, :start_time, :status, :home_score, :away_score, :model_prob_home, now())
		ON CONFLICT (game_id) DO UPDATE SET
			status = EXCLUDED.status,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			model_prob_home = EXCLUDED.model_prob_home,
			updated_at = now()
	`, map[string]any{
		"game_id": g.GameID, "sport": g.Sport, "home_team": g.HomeTeam, "away_team": g.AwayTeam,
		"start_time": g.StartTime, "status": g.Status, "home_score": g.HomeScore,
		"away_score": g.AwayScore, "model_prob_home": g.ModelProbHome,
	})
	if err != nil {
		return fmt.Errorf("store: upsert game: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) Game(ctx context.Context, gameID string) (model.Game, error) {
	var g model.Game
	err := s.pool.DB.GetContext(ctx, &g, `SELECT game_id, sport, home_team, away_team, start_time, status, home_score, away_score, model_prob_home FROM games WHERE game_id = $1`, gameID)
	if err != nil {
		return model.Game{}, dbpool.Classify(err)
	}
	return g, nil
}

func (s *Store) LiveGames(ctx context.Context) ([]model.Game, error) {
	var games []model.Game
	err := s.pool.DB.SelectContext(ctx, &games, `SELECT game_id, sport, home_team, away_team, start_time, status, home_score, away_score, model_prob_home FROM games WHERE status = 'live'`)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return games, nil
}
