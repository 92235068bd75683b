package plugin

import (
	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/convert"
)

// Defaults returns the built-in plugins in conversion order.  The ASN.1
// decoder is included only when cfg enables it.
func Defaults(cfg *config.Config) []convert.Plugin {
	res := []convert.Plugin{
		HTTP{},
		URI{},
		Bearer{},
		JSON{},
		XML{},
		JWT{},
		JWE{},
		Base64{},
		X509{},
		CBOR{},
	}
	if cfg != nil && cfg.ActivateASN1 {
		res = append(res, ASN1{})
	}
	return res
}
