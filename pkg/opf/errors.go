package opf

import "github.com/gatproject/gat/pkg/gaterrors"

func notImplemented(method Method) error {
	return gaterrors.New(gaterrors.KindNotImplemented, "opf method not implemented", map[string]any{"method": method.String()})
}
