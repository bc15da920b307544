package directory

import (
	"strings"

	"github.com/matheus3301/collab/internal/store"
)

// Ranking weights. Field scores add up.
const (
	scoreExactName  = 100
	scoreNamePrefix = 50
	scoreNameSubstr = 25
	scoreBio        = 10
	scoreRole       = 15
	scoreInterest   = 20
)

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Matches reports whether the query is a case-insensitive substring of the
// user's username, bio, role or any interest. An empty query matches
// everyone.
func Matches(u store.User, query string) bool {
	q := normalize(query)
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(u.Username), q) ||
		strings.Contains(strings.ToLower(u.Bio), q) ||
		strings.Contains(strings.ToLower(u.Role), q) {
		return true
	}
	return interestMatch(u.Interests, q)
}

// Score ranks u against query. Only one of the three username rules applies;
// bio, role and interest matches add on top.
func Score(u store.User, query string) int {
	q := normalize(query)
	if q == "" {
		return 0
	}

	score := 0
	name := strings.ToLower(u.Username)
	switch {
	case name == q:
		score += scoreExactName
	case strings.HasPrefix(name, q):
		score += scoreNamePrefix
	case strings.Contains(name, q):
		score += scoreNameSubstr
	}
	if strings.Contains(strings.ToLower(u.Bio), q) {
		score += scoreBio
	}
	if strings.Contains(strings.ToLower(u.Role), q) {
		score += scoreRole
	}
	if interestMatch(u.Interests, q) {
		score += scoreInterest
	}
	return score
}

func interestMatch(interests []string, q string) bool {
	for _, in := range interests {
		if strings.Contains(strings.ToLower(in), q) {
			return true
		}
	}
	return false
}
