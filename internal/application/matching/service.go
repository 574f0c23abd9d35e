// Package matching provides the contractor-to-project matching application
// service.  The match score blends text similarity between the project brief
// and the contractor profile with credential and proximity scores.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/similarity"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// Project describes the work to be matched.
type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	City         string   `json:"city,omitempty"`
	District     string   `json:"district,omitempty"`
}

// Contractor is one candidate profile.
type Contractor struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	Skills          []string `json:"skills,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Specialties     string   `json:"specialties,omitempty"`
	AvgRating       float64  `json:"avgRating"`
	ExperienceYears int      `json:"experienceYears"`
	CompletedJobs   int      `json:"completedJobs"`
	IsVerified      bool     `json:"isVerified"`
	City            string   `json:"city,omitempty"`
	District        string   `json:"district,omitempty"`
}

// MatchRequest pairs a project with candidate contractors.
type MatchRequest struct {
	Project     Project      `json:"project"`
	Contractors []Contractor `json:"contractors"`
	Limit       int          `json:"limit,omitempty"`
}

// Match is one scored contractor.
type Match struct {
	ContractorID   string   `json:"contractorId"`
	DisplayName    string   `json:"displayName"`
	Score          float64  `json:"score"`
	TextSimilarity float64  `json:"textSimilarity"`
	ProfileScore   float64  `json:"profileScore"`
	LocationScore  float64  `json:"locationScore"`
	Reasons        []string `json:"reasons"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service ranks contractors against a project.
type Service interface {
	Match(ctx context.Context, req MatchRequest) ([]Match, error)
}

// Deps holds all dependencies.
type Deps struct {
	// Scorer measures project/contractor text similarity.
	Scorer similarity.Scorer
	Logger logging.Logger
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

// Final score weights.
const (
	weightText     = 0.50
	weightProfile  = 0.35
	weightLocation = 0.15

	defaultLimit = 10
)

// Profile subscore weights.
const (
	profileWeightRating     = 0.40
	profileWeightExperience = 0.25
	profileWeightJobs       = 0.25
	profileWeightVerified   = 0.10

	maxExperienceYears = 20.0
	maxCompletedJobs   = 100.0
)

// Location proximity tiers.
const (
	locationSameDistrict = 1.0
	locationSameCity     = 0.8
	locationSameRegion   = 0.5
	locationOther        = 0.2
)

// cityRegions groups cities whose pairs count as the same region.
var cityRegions = map[string][]string{
	"dong_nam_bo": {"hồ chí minh", "tp.hcm", "biên hòa", "đồng nai", "bình dương", "vũng tàu", "bà rịa"},
	"ha_noi":      {"hà nội", "thanh hóa", "nam định", "ninh bình", "hải phòng"},
	"mien_tay":    {"cần thơ", "an giang", "kiên giang", "cà mau", "bạc liêu", "sóc trăng"},
	"mien_trung":  {"đà nẵng", "huế", "quảng nam", "quảng ngãi", "bình định", "nha trang"},
}

type serviceImpl struct {
	scorer similarity.Scorer
	logger logging.Logger
}

// NewService creates a contractor matching Service.
func NewService(deps Deps) (Service, error) {
	if deps.Scorer == nil {
		return nil, errors.New(errors.ErrCodeInternal, "matching: similarity scorer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{scorer: deps.Scorer, logger: logger.Named("matching")}, nil
}

func (s *serviceImpl) Match(ctx context.Context, req MatchRequest) ([]Match, error) {
	if strings.TrimSpace(req.Project.Title) == "" && strings.TrimSpace(req.Project.Description) == "" {
		return nil, errors.NewValidationError("project", "project title or description is required")
	}
	if len(req.Contractors) == 0 {
		return nil, errors.NewValidationError("contractors", "at least one contractor is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	projectText := strings.Join([]string{
		req.Project.Title,
		req.Project.Description,
		strings.Join(req.Project.Requirements, " "),
	}, " ")

	results := make([]Match, 0, len(req.Contractors))
	for _, c := range req.Contractors {
		contractorText := strings.Join([]string{
			strings.Join(c.Skills, " "),
			c.Bio,
			c.Specialties,
		}, " ")

		textSim := s.scorer.Similarity(projectText, contractorText)
		profile := profileScore(c)
		location := locationScore(c, req.Project)
		final := weightText*textSim + weightProfile*profile + weightLocation*location

		results = append(results, Match{
			ContractorID:   c.ID,
			DisplayName:    displayNameOr(c.DisplayName),
			Score:          round3(final),
			TextSimilarity: round3(textSim),
			ProfileScore:   round3(profile),
			LocationScore:  round3(location),
			Reasons:        matchReasons(textSim, location, c),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Info("contractor matching",
		logging.String("scorer", s.scorer.Name()),
		logging.Int("candidates", len(req.Contractors)),
		logging.Int("returned", len(results)))
	return results, nil
}

// ---------------------------------------------------------------------------
// Scoring
// ---------------------------------------------------------------------------

func profileScore(c Contractor) float64 {
	ratingNorm := c.AvgRating / 5.0
	experienceNorm := math.Min(float64(c.ExperienceYears)/maxExperienceYears, 1.0)
	jobsNorm := math.Min(float64(c.CompletedJobs)/maxCompletedJobs, 1.0)
	verified := 0.0
	if c.IsVerified {
		verified = 1.0
	}
	return profileWeightRating*ratingNorm +
		profileWeightExperience*experienceNorm +
		profileWeightJobs*jobsNorm +
		profileWeightVerified*verified
}

func locationScore(c Contractor, p Project) float64 {
	cCity := strings.ToLower(strings.TrimSpace(c.City))
	cDistrict := strings.ToLower(strings.TrimSpace(c.District))
	pCity := strings.ToLower(strings.TrimSpace(p.City))
	pDistrict := strings.ToLower(strings.TrimSpace(p.District))

	if cCity == pCity && cDistrict == pDistrict {
		return locationSameDistrict
	}
	if cCity == pCity {
		return locationSameCity
	}
	if sameRegion(cCity, pCity) {
		return locationSameRegion
	}
	return locationOther
}

func sameRegion(city1, city2 string) bool {
	for _, cities := range cityRegions {
		in1 := false
		for _, c := range cities {
			if strings.Contains(city1, c) || strings.Contains(c, city1) {
				in1 = true
				break
			}
		}
		if !in1 {
			continue
		}
		for _, c := range cities {
			if strings.Contains(city2, c) || strings.Contains(c, city2) {
				return true
			}
		}
	}
	return false
}

func matchReasons(textSim, location float64, c Contractor) []string {
	var reasons []string

	if textSim >= 0.7 {
		reasons = append(reasons, "Kỹ năng phù hợp rất cao với yêu cầu dự án")
	} else if textSim >= 0.5 {
		reasons = append(reasons, "Kỹ năng phù hợp tốt với yêu cầu dự án")
	}
	if c.AvgRating >= 4.5 {
		reasons = append(reasons, fmt.Sprintf("Đánh giá xuất sắc (%.1f/5 sao)", c.AvgRating))
	} else if c.AvgRating >= 4.0 {
		reasons = append(reasons, fmt.Sprintf("Đánh giá tốt (%.1f/5 sao)", c.AvgRating))
	}
	if c.ExperienceYears >= 5 {
		reasons = append(reasons, fmt.Sprintf("%d năm kinh nghiệm", c.ExperienceYears))
	}
	if location >= 0.8 {
		reasons = append(reasons, "Cùng khu vực địa lý")
	}
	if c.IsVerified {
		reasons = append(reasons, "Đã xác minh")
	}

	if len(reasons) == 0 {
		return []string{"Phù hợp với tiêu chí tìm kiếm"}
	}
	return reasons
}

func displayNameOr(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
