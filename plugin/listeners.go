package plugin

import (
	"encoding/base64"
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/keys"

	jose "github.com/go-jose/go-jose/v4"
)

// X5CListener adds the leaf certificate key of JSON objects carrying both a
// kid and an x5c member, named by the kid.
func X5CListener() convert.Listener {
	return convert.ListenerFunc(func(el *element.Element, ctx *convert.Context) {
		kid, ok := jsonMember(el, "kid")
		if !ok {
			return
		}
		x5c, ok := jsonMember(el, "x5c")
		if !ok {
			return
		}
		leaf, ok := x5c.Item(0)
		if !ok {
			return
		}
		cert := parseCertificate(leaf.Raw())
		if cert == nil {
			ctx.Log().Debug().Str("kid", kid.Content()).Msg("unreadable x5c certificate")
			return
		}
		addKey(ctx, kid.Content(), cert.PublicKey, keys.PrecedenceX5CHeader)
	})
}

// JWKListener adds the keys of JSON web keys.  A private key is added along
// with its public half, named with keys.PublicSuffix.
func JWKListener() convert.Listener {
	return convert.ListenerFunc(func(el *element.Element, ctx *convert.Context) {
		// ephemeral keys of JWE headers are not key material
		if _, ok := jsonMember(el, "kty"); !ok || el.Name() == "epk" {
			return
		}
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(el.Raw()); err != nil {
			ctx.Log().Debug().Err(err).Str("path", el.Path()).Msg("unreadable jwk")
			return
		}
		name := jwk.KeyID
		if name == "" {
			name = "jwk"
		}
		if jwk.IsPublic() || isSymmetric(jwk.Key) {
			addKey(ctx, name, jwk.Key, keys.PrecedenceJWK)
			return
		}
		pub, err := keys.New(name+keys.PublicSuffix, jwk.Public().Key, keys.PrecedenceJWK)
		if err != nil {
			ctx.Log().Debug().Err(err).Str("kid", name).Msg("unusable jwk")
			return
		}
		priv, err := keys.NewPrivate(name, jwk.Key, keys.PrecedenceJWK, pub)
		if err != nil {
			ctx.Log().Debug().Err(err).Str("kid", name).Msg("unusable jwk")
			return
		}
		ctx.Keys().AddAll(pub, priv)
	})
}

// TokenKeyListener adds the base64url encoded symmetric key found in
// token_key members.
func TokenKeyListener() convert.Listener {
	return convert.ListenerFunc(func(el *element.Element, ctx *convert.Context) {
		tk, ok := jsonMember(el, "token_key")
		if !ok {
			return
		}
		k, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(tk.Content(), "="))
		if err != nil {
			ctx.Log().Debug().Err(err).Msg("unreadable token_key")
			return
		}
		addKey(ctx, "token_key", k, keys.PrecedenceKeyFolder)
	})
}

// RegisterListeners registers the key extraction listeners with c.
func RegisterListeners(c *convert.Converter) {
	c.RegisterListener(JSONKind, X5CListener())
	c.RegisterListener(JSONKind, JWKListener())
	c.RegisterListener(JSONKind, TokenKeyListener())
}

func jsonMember(el *element.Element, name string) (*element.Element, bool) {
	f, ok := element.FacetOf[JSONFacet](el)
	if !ok || f.Array {
		return nil, false
	}
	for _, c := range f.Entries {
		if c.Name == name {
			return c.Element, true
		}
	}
	return nil, false
}

func isSymmetric(k any) bool {
	_, ok := k.([]byte)
	return ok
}

func addKey(ctx *convert.Context, name string, material any, precedence int) {
	added, err := ctx.Keys().AddKey(name, material, precedence)
	if err != nil {
		ctx.Log().Debug().Err(err).Str("key", name).Msg("rejected key")
		return
	}
	if added {
		ctx.Log().Debug().Str("key", name).Int("precedence", precedence).Msg("added key")
	}
}
