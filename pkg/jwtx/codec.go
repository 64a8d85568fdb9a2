// Package jwtx decodes access and refresh tokens into typed claims.
//
// Decoding is read-only and non-cryptographic: only the payload segment is
// parsed and the signature is never checked. Trust in the values comes from
// the authenticated channel the token arrived on.
package jwtx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/golang-jwt/jwt/v5"
)

const segmentCount = 3

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode splits token into its three segments and decodes the payload into
// Claims for the given kind. Any structural or parse failure is returned as
// an errx token validation error.
func Decode(token string, kind Kind) (Claims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != segmentCount {
		return Claims{}, errx.TokenValidation("Token data is invalid")
	}

	data, err := segmentParser.DecodeSegment(segments[1])
	if err != nil {
		return Claims{}, tokenError(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Claims{}, tokenError(err)
	}
	if raw == nil {
		// "null" is JSON but not a payload
		return Claims{}, errx.TokenValidation("Token payload is not an object")
	}

	var p payload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return Claims{}, tokenError(err)
	}

	return p.claims(kind, raw), nil
}

// DecodeAccess decodes an access token.
func DecodeAccess(token string) (Claims, error) { return Decode(token, KindAccess) }

// DecodeRefresh decodes a refresh token.
func DecodeRefresh(token string) (Claims, error) { return Decode(token, KindRefresh) }

// WellFormed reports whether token has the three-segment structural shape.
func WellFormed(token string) bool {
	return strings.Count(token, ".") == segmentCount-1
}

func tokenError(err error) *errx.Error {
	e := errx.TokenValidation(fmt.Sprintf("Token payload is malformed: %v", err))
	e.Cause = err
	return e
}
