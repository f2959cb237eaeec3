package httpapi

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Pages serves the placeholder HTML the tutorial flow navigates between.
// A real frontend would replace all of it, the gate does not care.
func Pages() http.Handler {
	router := httprouter.New()
	router.HandlerFunc("GET", "/", page("home", `<a href="/auth/login">login</a> or <a href="/auth/register">register</a>`))
	router.HandlerFunc("GET", "/auth/login", page("login", loginForm))
	router.HandlerFunc("GET", "/auth/register", page("register", registerForm))
	router.HandlerFunc("GET", "/dashboard", page("dashboard", `you are signed in`))
	return router
}

const (
	loginForm = `<form method="post" action="/api/auth/login">
	<input name="email" type="email" placeholder="email">
	<input name="password" type="password" placeholder="password">
	<button>sign in</button></form>`
	registerForm = `<form method="post" action="/api/auth/register">
	<input name="name" placeholder="name">
	<input name="email" type="email" placeholder="email">
	<input name="password" type="password" placeholder="password">
	<button>create account</button></form>`
)

func page(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>%v</title></head><body><h1>%v</h1>%v</body></html>", title, title, body)
	}
}
