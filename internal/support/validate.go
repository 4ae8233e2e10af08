package support

import "regexp"

// Local part must not start or end with a dot, the domain needs at least one
// dot-separated label after the @.
var emailPattern = regexp.MustCompile(`^[\w-]([\w.-]*[\w-])?@\w[\w-]*(\.[\w-]+)+$`)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}
