// Package tokens provides JWT bearer token issuing and validation for the
// apigate credential gate.
//
// Tokens are HS256 (HMAC with SHA-256) signed JSON Web Tokens minted by a
// single Server, which holds the symmetric signing key and acts as both the
// Issuer and the Validator.
//
// Every token carries a Kind discriminator. A token is only accepted by a
// Decode call that expects the same kind, so a browser session token signed
// with the same key can never be replayed against the API surface.
//
// # Issuing Tokens
//
//	issuer, validator := tokens.InitServer(signingKey, "apigate.example.com")
//
//	token, err := issuer.IssueToken(
//	    tokens.KindAPI,
//	    "Xc81hQpL0aZr2mNd", // subject app identifier
//	    "Billing Service",  // display name, copied into the payload
//	    time.Hour,          // lifetime
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokenString := token.Encoded()
//
// # Validating Tokens
//
//	token := &tokens.Token{}
//	if err := token.Decode(tokenString, validator, tokens.KindAPI); err != nil {
//	    log.Println(tokens.Context(err)) // detail for logs only
//	    return err
//	}
//	appID := token.Subject()
//
// Decode checks, in order: segment structure, signature and registered
// claims (through golang-jwt), then an explicit issued-at and expiry check,
// the issuer, the kind, and finally that a subject is present.
//
// # Error Handling
//
//	err := token.Decode(tokenString, validator, tokens.KindAPI)
//	switch {
//	case errors.Is(err, tokens.ErrTokenMalformed()):
//	    // not three non-empty dot-separated segments
//	case errors.Is(err, tokens.ErrTokenExpired()):
//	    // past its expiration
//	case errors.Is(err, tokens.ErrTokenBadSignature()):
//	    // signed with another key or algorithm
//	case errors.Is(err, tokens.ErrTokenWrongKind()):
//	    // minted for a different purpose
//	case errors.Is(err, tokens.ErrTokenMissingSubject()):
//	    // no app_id in the payload
//	}
package tokens
