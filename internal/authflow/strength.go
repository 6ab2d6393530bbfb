package authflow

import "unicode"

// Strength rates a password.
type Strength struct {
	Score   int    // 0 to 5
	Label   string // e.g. "Fair"
	Percent int    // Score * 20
}

var strengthLabels = []string{"Very weak", "Very weak", "Weak", "Fair", "Strong", "Very strong"}

// PasswordStrength scores one point each for a length of at least 8 and
// for containing a lowercase letter, an uppercase letter, a digit and any
// other character.
func PasswordStrength(password string) Strength {
	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		default:
			other = true
		}
	}

	score := 0
	for _, ok := range []bool{len(password) >= 8, lower, upper, digit, other} {
		if ok {
			score++
		}
	}
	return Strength{Score: score, Label: strengthLabels[score], Percent: score * 20}
}

// Describe returns the caption shown under the password field.
func (s Strength) Describe(password string) string {
	if password == "" {
		return "Password strength"
	}
	return "Password strength: " + s.Label
}
