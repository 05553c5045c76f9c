// Package auth implements the authentication strategies applied to driver
// requests.
//
// [JWTAuthentication] logs in against an identity endpoint with the
// connection user and password, caches the returned token in a
// [session.Store] and appends it as an X-API-Token header:
//
//	strategy, err := auth.NewJWTAuthentication(auth.JWTOptions{
//		User:     "a",
//		Password: "b",
//		URL:      "https://id.example.com/login",
//		Prefix:   "Bearer ",
//	}, auth.WithStore(store))
//
//	req, err = strategy.TransformRequest(ctx, req)
//
// A cached token is considered stale once iat + RevalidateTokenTime (5s by
// default) is no longer in the future. Tokens whose payload cannot be decoded
// are refetched as well.
//
// [HTTPBasicAuthentication] and [NoAuthentication] cover the other
// authenticator classes; [NewStrategy] picks one from configuration.
package auth
