package teammatch

// Sport identifies which alias table and nickname set Match consults.
type Sport string

const (
	SportNBA  Sport = "nba"
	SportNFL  Sport = "nfl"
	SportNHL  Sport = "nhl"
	SportMLB  Sport = "mlb"
	SportNCAA Sport = "ncaa"
)

// aliasesForSport returns the normalized-alternate -> canonical map for
// a sport. Entries are keyed on the already-Normalize'd form.
func aliasesForSport(sport Sport) map[string]string {
	switch sport {
	case SportNBA:
		return nbaAliases
	case SportNFL:
		return nflAliases
	case SportNHL:
		return nhlAliases
	case SportMLB:
		return mlbAliases
	case SportNCAA:
		return ncaaAliases
	default:
		return map[string]string{}
	}
}

// nicknamesForSport returns single-word nicknames that resolve to a
// canonical full team name, consulted after the alias table fails and
// before the fuzzy pass.
func nicknamesForSport(sport Sport) map[string]string {
	switch sport {
	case SportNBA:
		return nbaNicknames
	case SportNFL:
		return nflNicknames
	case SportNHL:
		return nhlNicknames
	case SportMLB:
		return mlbNicknames
	case SportNCAA:
		return map[string]string{}
	default:
		return map[string]string{}
	}
}

var nbaAliases = map[string]string{
	"la lakers": "los angeles lakers", "lakers": "los angeles lakers",
	"la clippers": "los angeles clippers",
	"gsw":         "golden state warriors", "warriors": "golden state warriors",
	"ny knicks": "new york knicks",
	"sa spurs":  "san antonio spurs",
	"okc":       "oklahoma city thunder", "okc thunder": "oklahoma city thunder",
	"philly 76ers": "philadelphia 76ers", "sixers": "philadelphia 76ers",
	"blazers": "portland trail blazers", "trail blazers": "portland trail blazers",
}

var nbaNicknames = map[string]string{
	"celtics": "boston celtics", "nets": "brooklyn nets", "knicks": "new york knicks",
	"sixers": "philadelphia 76ers", "raptors": "toronto raptors",
	"bulls": "chicago bulls", "cavaliers": "cleveland cavaliers", "cavs": "cleveland cavaliers",
	"pistons": "detroit pistons", "pacers": "indiana pacers", "bucks": "milwaukee bucks",
	"hawks": "atlanta hawks", "hornets": "charlotte hornets", "heat": "miami heat",
	"magic": "orlando magic", "wizards": "washington wizards",
	"nuggets": "denver nuggets", "wolves": "minnesota timberwolves", "thunder": "oklahoma city thunder",
	"blazers": "portland trail blazers", "jazz": "utah jazz",
	"warriors": "golden state warriors", "clippers": "los angeles clippers",
	"lakers": "los angeles lakers", "suns": "phoenix suns", "kings": "sacramento kings",
	"mavs": "dallas mavericks", "rockets": "houston rockets", "grizzlies": "memphis grizzlies",
	"pelicans": "new orleans pelicans", "spurs": "san antonio spurs",
}

var nflAliases = map[string]string{
	"ny giants": "new york giants", "ny jets": "new york jets",
	"la rams": "los angeles rams", "la chargers": "los angeles chargers",
	"tb buccaneers": "tampa bay buccaneers", "kc chiefs": "kansas city chiefs",
	"niners": "san francisco 49ers", "49ers": "san francisco 49ers",
}

var nflNicknames = map[string]string{
	"bills": "buffalo bills", "dolphins": "miami dolphins", "patriots": "new england patriots",
	"jets": "new york jets", "ravens": "baltimore ravens", "bengals": "cincinnati bengals",
	"browns": "cleveland browns", "steelers": "pittsburgh steelers", "texans": "houston texans",
	"colts": "indianapolis colts", "jaguars": "jacksonville jaguars", "titans": "tennessee titans",
	"broncos": "denver broncos", "chiefs": "kansas city chiefs", "raiders": "las vegas raiders",
	"chargers": "los angeles chargers", "cowboys": "dallas cowboys", "giants": "new york giants",
	"eagles": "philadelphia eagles", "commanders": "washington commanders",
	"bears": "chicago bears", "lions": "detroit lions", "packers": "green bay packers",
	"vikings": "minnesota vikings", "falcons": "atlanta falcons", "panthers": "carolina panthers",
	"saints": "new orleans saints", "buccaneers": "tampa bay buccaneers", "bucs": "tampa bay buccaneers",
	"cardinals": "arizona cardinals", "rams": "los angeles rams", "49ers": "san francisco 49ers",
	"seahawks": "seattle seahawks",
}

var nhlAliases = map[string]string{
	"ny rangers": "new york rangers", "ny islanders": "new york islanders",
	"la kings": "los angeles kings", "tb lightning": "tampa bay lightning",
	"nj devils": "new jersey devils", "vgk": "vegas golden knights",
}

var nhlNicknames = map[string]string{
	"bruins": "boston bruins", "sabres": "buffalo sabres", "red wings": "detroit red wings",
	"panthers": "florida panthers", "canadiens": "montreal canadiens", "senators": "ottawa senators",
	"lightning": "tampa bay lightning", "leafs": "toronto maple leafs", "maple leafs": "toronto maple leafs",
	"hurricanes": "carolina hurricanes", "blue jackets": "columbus blue jackets",
	"devils": "new jersey devils", "rangers": "new york rangers", "flyers": "philadelphia flyers",
	"penguins": "pittsburgh penguins", "capitals": "washington capitals", "caps": "washington capitals",
	"blackhawks": "chicago blackhawks", "avalanche": "colorado avalanche", "avs": "colorado avalanche",
	"stars": "dallas stars", "wild": "minnesota wild", "predators": "nashville predators",
	"preds": "nashville predators", "blues": "st louis blues", "jets": "winnipeg jets",
	"ducks": "anaheim ducks", "coyotes": "arizona coyotes", "flames": "calgary flames",
	"oilers": "edmonton oilers", "kings": "los angeles kings", "sharks": "san jose sharks",
	"kraken": "seattle kraken", "canucks": "vancouver canucks", "knights": "vegas golden knights",
	"golden knights": "vegas golden knights",
}

var mlbAliases = map[string]string{
	"ny yankees": "new york yankees", "ny mets": "new york mets",
	"la dodgers": "los angeles dodgers", "la angels": "los angeles angels",
	"sf giants": "san francisco giants", "sd padres": "san diego padres",
	"cws": "chicago white sox", "chisox": "chicago white sox",
}

var mlbNicknames = map[string]string{
	"orioles": "baltimore orioles", "red sox": "boston red sox", "yankees": "new york yankees",
	"rays": "tampa bay rays", "blue jays": "toronto blue jays", "white sox": "chicago white sox",
	"guardians": "cleveland guardians", "tigers": "detroit tigers", "royals": "kansas city royals",
	"twins": "minnesota twins", "astros": "houston astros", "angels": "los angeles angels",
	"athletics": "oakland athletics", "mariners": "seattle mariners", "rangers": "texas rangers",
	"braves": "atlanta braves", "marlins": "miami marlins", "mets": "new york mets",
	"phillies": "philadelphia phillies", "nationals": "washington nationals",
	"cubs": "chicago cubs", "reds": "cincinnati reds", "brewers": "milwaukee brewers",
	"pirates": "pittsburgh pirates", "cardinals": "st louis cardinals",
	"diamondbacks": "arizona diamondbacks", "dbacks": "arizona diamondbacks",
	"rockies": "colorado rockies", "dodgers": "los angeles dodgers", "padres": "san diego padres",
	"giants": "san francisco giants",
}

var ncaaAliases = map[string]string{
	"ohio st": "ohio state", "osu": "ohio state",
	"unc": "north carolina", "usc": "southern california",
	"ole miss": "mississippi", "lsu": "louisiana state",
	"uconn": "connecticut", "smu": "southern methodist",
}
