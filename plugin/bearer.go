package plugin

import (
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

const bearerPrefix = "Bearer "

// Bearer splits "Bearer <token>" header values.
type Bearer struct{}

func (Bearer) Name() string { return "bearer" }

func (Bearer) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	token, ok := strings.CutPrefix(el.Content(), bearerPrefix)
	if !ok || token == "" {
		return false, nil
	}
	f := BearerFacet{Token: el.NewChildString("BearerToken", strings.TrimSpace(token))}
	el.AddFacet(f)
	ctx.Convert(f.Token)
	return true, nil
}
