package types

// ContextClaimsKey is where the auth middleware stores the verified token
// claims on the request context.
const ContextClaimsKey = "claims"

// TokenHeader is the request header carrying the raw signed token. The API
// predates Bearer conventions and clients send the token bare.
const TokenHeader = "auth-token"
