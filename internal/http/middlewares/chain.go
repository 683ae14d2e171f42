// Package middlewares contiene los decoradores http.Handler del servidor.
package middlewares

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain envuelve h para que mws[0] quede afuera de todo:
// Chain(h, A, B) atiende como A(B(h)).
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
