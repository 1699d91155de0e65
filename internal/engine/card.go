package engine

type Attribute string

const (
	AttrRuns            Attribute = "runs"
	AttrWickets         Attribute = "wickets"
	AttrBattingAverage  Attribute = "battingAverage"
	AttrStrikeRate      Attribute = "strikeRate"
	AttrMatchesPlayed   Attribute = "matchesPlayed"
	AttrCenturies       Attribute = "centuries"
	AttrFiveWicketHauls Attribute = "fiveWicketHauls"
	AttrEconomy         Attribute = "economy"
)

// Weights scales a declared value before it is compared. Only attributes
// listed here can be claimed; format is descriptive and never weighted.
var Weights = map[Attribute]float64{
	AttrRuns:            1.0,
	AttrWickets:         1.0,
	AttrBattingAverage:  1.5,
	AttrStrikeRate:      1.2,
	AttrMatchesPlayed:   0.8,
	AttrCenturies:       2.0,
	AttrFiveWicketHauls: 2.5,
	AttrEconomy:         1.0,
}

// Card is a catalog record. The engine only reads the attribute referenced by
// a claim; everything else rides along as payload for clients.
type Card struct {
	ID              string  `json:"id"`
	PlayerName      string  `json:"playerName"`
	Runs            float64 `json:"runs"`
	Wickets         float64 `json:"wickets"`
	BattingAverage  float64 `json:"battingAverage"`
	StrikeRate      float64 `json:"strikeRate"`
	MatchesPlayed   float64 `json:"matchesPlayed"`
	Centuries       float64 `json:"centuries"`
	FiveWicketHauls float64 `json:"fiveWicketHauls"`
	Economy         float64 `json:"economy"`
	Format          string  `json:"format,omitempty"`
}

// Value returns the card's true value for a weighted attribute.
func (c Card) Value(a Attribute) (float64, bool) {
	switch a {
	case AttrRuns:
		return c.Runs, true
	case AttrWickets:
		return c.Wickets, true
	case AttrBattingAverage:
		return c.BattingAverage, true
	case AttrStrikeRate:
		return c.StrikeRate, true
	case AttrMatchesPlayed:
		return c.MatchesPlayed, true
	case AttrCenturies:
		return c.Centuries, true
	case AttrFiveWicketHauls:
		return c.FiveWicketHauls, true
	case AttrEconomy:
		return c.Economy, true
	default:
		return 0, false
	}
}

func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(s)
	if _, ok := Weights[a]; !ok {
		return "", ErrUnknownAttribute
	}
	return a, nil
}

// Weighted multiplies a declared value by the attribute's weight. Unknown
// attributes weigh zero.
func Weighted(value float64, a Attribute) float64 {
	return value * Weights[a]
}
