package middleware

type contextKey string

const (
	skipAccessLogKey contextKey = "skip_access_log"
	subjectKey       contextKey = "auth_subject"
)
