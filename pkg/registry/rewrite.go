package registry

// ProfIDExpr replaces the prof_id column in backfill projections. The source
// log has no prof_id column; views derive it from the object fields.
const ProfIDExpr = "multiIf(object_type = 'prof', object_id, ev_sourceId) prof_id"

// RewriteRule substitutes a view column with a computed source expression
type RewriteRule struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Column string `mapstructure:"column" yaml:"column"`
	Expr   string `mapstructure:"expr" yaml:"expr"`
}

// ProfIDRewrite is the built-in prof_id denormalization rule
var ProfIDRewrite = RewriteRule{
	Name:   "prof_id",
	Column: "prof_id",
	Expr:   ProfIDExpr,
}

// DefaultRewrites are applied when no rules are configured
func DefaultRewrites() []RewriteRule {
	return []RewriteRule{ProfIDRewrite}
}

// BuildProjection maps view columns to source expressions, in column order.
// The first matching rule wins; unmatched columns pass through unchanged.
func BuildProjection(columns []string, rules []RewriteRule) []string {
	projection := make([]string, len(columns))
	for i, col := range columns {
		projection[i] = col
		for _, rule := range rules {
			if rule.Column == col {
				projection[i] = rule.Expr
				break
			}
		}
	}
	return projection
}
