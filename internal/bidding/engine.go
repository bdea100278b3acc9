package bidding

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/scoring"
)

const (
	defaultCapacityFraction = 0.3
	maxRating               = 5.0
)

var ErrNoPendingBids = errors.New("bidding: no pending bids")

// tierBonus is added on top of the weighted sum.
var tierBonus = map[string]float64{
	models.TierPlatinum: 0.04,
	models.TierGold:     0.03,
	models.TierSilver:   0.02,
	models.TierStandard: 0,
}

func TierBonus(tier string) float64 {
	return tierBonus[strings.ToUpper(strings.TrimSpace(tier))]
}

type Weights struct {
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Capacity float64 `json:"capacity"`
	PrepTime float64 `json:"prep_time"`
}

func DefaultWeights() Weights {
	return Weights{Price: 0.40, Rating: 0.30, Capacity: 0.20, PrepTime: 0.10}
}

func WeightsFromConfig(cfg config.BidWeightsConfig) Weights {
	w := Weights{Price: cfg.Price, Rating: cfg.Rating, Capacity: cfg.Capacity, PrepTime: cfg.PrepTime}
	if w == (Weights{}) {
		return DefaultWeights()
	}
	return w
}

// Candidate is a pending bid joined with its restaurant profile.
type Candidate struct {
	BidID               string
	RestaurantID        string
	RestaurantName      string
	Price               float64
	PrepTimeMinutes     int
	MaxCapacity         int
	Rating              float64
	Equipment           []string
	MaxConcurrentOrders *int
	ActiveOrders        int64
	Tier                string
	CreatedAt           time.Time
}

type Input struct {
	Bids              []Candidate
	RequiredEquipment []string
	MemberCount       int64
	CapacityFraction  float64
	Weights           Weights
}

type Scored struct {
	BidID         string  `json:"bid_id"`
	RestaurantID  string  `json:"restaurant_id"`
	Eligible      bool    `json:"eligible"`
	PriceScore    float64 `json:"price_score"`
	RatingScore   float64 `json:"rating_score"`
	CapacityScore float64 `json:"capacity_score"`
	PrepTimeScore float64 `json:"prep_time_score"`
	TierBonus     float64 `json:"tier_bonus"`
	Score         float64 `json:"score"`
}

type Outcome struct {
	Winner            Scored   `json:"winner"`
	Scores            []Scored `json:"scores"`
	RequiredCapacity  int      `json:"required_capacity"`
	EquipmentFallback bool     `json:"equipment_fallback"`
	CapacityFallback  bool     `json:"capacity_fallback"`
}

// RequiredCapacity is the serving count a winner should be able to cover:
// ceil(members * fraction), at least 1.
func RequiredCapacity(members int64, fraction float64) int {
	if fraction <= 0 {
		fraction = defaultCapacityFraction
	}
	req := int(math.Ceil(float64(members) * fraction))
	if req < 1 {
		return 1
	}
	return req
}

// Select filters and scores the bids and picks exactly one winner. Scores
// covers every input bid in input order; bids removed by the filters score 0.
func Select(in Input) (Outcome, error) {
	if len(in.Bids) == 0 {
		return Outcome{}, ErrNoPendingBids
	}
	weights := in.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	out := Outcome{RequiredCapacity: RequiredCapacity(in.MemberCount, in.CapacityFraction)}

	eligible := filter(in.Bids, func(c Candidate) bool { return hasEquipment(c.Equipment, in.RequiredEquipment) })
	if len(eligible) == 0 {
		eligible = in.Bids
		out.EquipmentFallback = true
	}
	withCapacity := filter(eligible, underOrderLimit)
	if len(withCapacity) == 0 {
		withCapacity = eligible
		out.CapacityFallback = true
	}
	eligible = withCapacity

	prices := make([]float64, len(eligible))
	preps := make([]float64, len(eligible))
	for i, c := range eligible {
		prices[i] = c.Price
		preps[i] = float64(c.PrepTimeMinutes)
	}
	priceScores := scoring.MinMaxInverse(prices)
	prepScores := scoring.MinMaxInverse(preps)

	scored := make(map[string]Scored, len(eligible))
	winnerIdx := -1
	for i, c := range eligible {
		s := Scored{
			BidID:         c.BidID,
			RestaurantID:  c.RestaurantID,
			Eligible:      true,
			PriceScore:    priceScores[i],
			RatingScore:   c.Rating / maxRating,
			CapacityScore: scoring.Ratio(float64(c.MaxCapacity), float64(out.RequiredCapacity)),
			PrepTimeScore: prepScores[i],
			TierBonus:     TierBonus(c.Tier),
		}
		s.Score = s.PriceScore*weights.Price +
			s.RatingScore*weights.Rating +
			s.CapacityScore*weights.Capacity +
			s.PrepTimeScore*weights.PrepTime +
			s.TierBonus
		scored[c.BidID] = s
		if winnerIdx < 0 || beats(s, c, scored[eligible[winnerIdx].BidID], eligible[winnerIdx]) {
			winnerIdx = i
		}
	}

	out.Winner = scored[eligible[winnerIdx].BidID]
	out.Scores = make([]Scored, 0, len(in.Bids))
	for _, c := range in.Bids {
		if s, ok := scored[c.BidID]; ok {
			out.Scores = append(out.Scores, s)
			continue
		}
		out.Scores = append(out.Scores, Scored{BidID: c.BidID, RestaurantID: c.RestaurantID})
	}
	return out, nil
}

// beats orders by score, then earlier submission, then bid id.
func beats(a Scored, ac Candidate, b Scored, bc Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !ac.CreatedAt.Equal(bc.CreatedAt) {
		return ac.CreatedAt.Before(bc.CreatedAt)
	}
	return ac.BidID < bc.BidID
}

func filter(in []Candidate, keep func(Candidate) bool) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func hasEquipment(have, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, r := range required {
		key := strings.ToLower(strings.TrimSpace(r))
		if key == "" {
			continue
		}
		if _, ok := set[key]; !ok {
			return false
		}
	}
	return true
}

func underOrderLimit(c Candidate) bool {
	if c.MaxConcurrentOrders == nil {
		return true
	}
	return c.ActiveOrders < int64(*c.MaxConcurrentOrders)
}
