package auth

// tokenHandler sends a static token that never expires or refreshes.
type tokenHandler struct {
	token     string
	tokenType string
}

func newTokenHandler(creds Credentials) *tokenHandler {
	tokenType := creds.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &tokenHandler{
		token:     creds.Token,
		tokenType: tokenType,
	}
}

func (h *tokenHandler) Scheme() Scheme { return SchemeToken }

func (h *tokenHandler) FormatGetArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *tokenHandler) FormatPostArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *tokenHandler) format(args RequestArgs) RequestArgs {
	if h.token == "" {
		return args.Clone()
	}
	return args.withAuthorization(h.tokenType + " " + h.token)
}
