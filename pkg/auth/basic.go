package auth

// basicHandler implements username/password auth.
type basicHandler struct {
	username string
	encoded  string
}

func newBasicHandler(creds Credentials) *basicHandler {
	h := &basicHandler{
		username: creds.Username,
		encoded:  creds.Base64Encoded,
	}
	// A raw password only arrives when it was just changed.
	if creds.Password != "" && creds.Username != "" {
		h.encoded = basicToken(creds.Username, creds.Password)
	}
	return h
}

func (h *basicHandler) Scheme() Scheme { return SchemeBasic }

func (h *basicHandler) FormatGetArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *basicHandler) FormatPostArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *basicHandler) format(args RequestArgs) RequestArgs {
	if h.username == "" || h.encoded == "" {
		return args.Clone()
	}
	return args.withAuthorization("Basic " + h.encoded)
}
