package password

import "unicode"

// Motivos de rechazo devueltos por Policy.Validate.
const (
	ReasonTooShort      = "too_short"
	ReasonMissingUpper  = "missing_upper"
	ReasonMissingLower  = "missing_lower"
	ReasonMissingDigit  = "missing_digit"
	ReasonMissingSymbol = "missing_symbol"
)

// Policy define requisitos mínimos para passwords nuevos.
// El valor cero no exige nada: /users acepta cualquier password no vacío.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Enabled indica si la política exige algo.
func (p Policy) Enabled() bool {
	return p.MinLength > 0 || p.RequireUpper || p.RequireLower || p.RequireDigit || p.RequireSymbol
}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, ReasonTooShort)
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, ReasonMissingUpper)
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, ReasonMissingLower)
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, ReasonMissingDigit)
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, ReasonMissingSymbol)
	}
	return len(reasons) == 0, reasons
}
