package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateUsername(username string) []string {
	var issues []string
	if len(username) < 3 || len(username) > 30 {
		issues = append(issues, "username must be between 3 and 30 characters")
	}
	if username != "" && !usernameRe.MatchString(username) {
		issues = append(issues, "username may only contain letters, digits, underscore and hyphen")
	}
	return issues
}

func validateEmail(email string) []string {
	if _, err := mail.ParseAddress(email); err != nil {
		return []string{"email is not a valid address"}
	}
	return nil
}

func validatePassword(password string) []string {
	var issues []string
	if len(password) < 8 {
		issues = append(issues, "password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		issues = append(issues, "password must contain an uppercase letter")
	}
	if !hasLower {
		issues = append(issues, "password must contain a lowercase letter")
	}
	if !hasDigit {
		issues = append(issues, "password must contain a digit")
	}
	if !hasSymbol {
		issues = append(issues, fmt.Sprintf("password must contain one of %s", passwordSymbols))
	}
	return issues
}
