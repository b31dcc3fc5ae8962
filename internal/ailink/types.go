package ailink

import (
	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/profile"
)

// Roles route each operation to a provider instance. They share names with
// the built-in profiles.
const (
	RoleMarketAnalysis = profile.SlugMarketAnalysis
	RoleImageAnalysis  = profile.SlugImageAnalysis
	RoleDeepDive       = profile.SlugDeepDive
)

// Roles lists every routable role in display order.
var Roles = []string{RoleMarketAnalysis, RoleImageAnalysis, RoleDeepDive}

// Citation identifies one web or maps source used to ground an answer.
type Citation = content.GroundingChunk

// CitationSource is the uri/title pair of either citation variant.
type CitationSource = content.GroundingSource

// MarketAnalysis is the result of a search-grounded query.
//
// Sources is never nil; an ungrounded answer carries an empty slice.
type MarketAnalysis struct {
	Text    string     `json:"text"`
	Sources []Citation `json:"sources"`
}
