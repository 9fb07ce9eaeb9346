package auth

// Principal is the authenticated caller of the API.
type Principal struct {
	Subject string `json:"sub"`
}

type contextKey string

const principalContextKey contextKey = "principal"
