package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const postDoneURL = "/post_done/"

// baseData holds the values every page template expects.
func (g *Gallery) baseData(w http.ResponseWriter, r *http.Request, title string) map[string]any {
	user := g.currentUser(r)
	return map[string]any{
		"Title":           title,
		"User":            user,
		"IsAuthenticated": user != nil,
		"CSRFToken":       ensureCSRFToken(w, r),
	}
}

func parsePage(r *http.Request) pageRequest {
	raw := r.URL.Query().Get("page")
	if raw == "last" {
		return pageRequest{Last: true}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return pageRequest{Number: 1}
	}
	return pageRequest{Number: n}
}

func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (g *Gallery) Index(w http.ResponseWriter, r *http.Request) {
	intro, err := getSetting(g.db, introSettingKey)
	if err != nil {
		serverError(w, r, "loading intro", err)
		return
	}

	g.renderList(w, r, PhotoFilter{}, "Gallery", map[string]any{"Intro": intro})
}

func (g *Gallery) CategoryList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "category")
	if err != nil {
		// The route only admits digits, so this is an id too large to exist.
		g.renderList(w, r, PhotoFilter{None: true}, "Category", nil)
		return
	}

	category, err := getCategory(r.Context(), g.db, id)
	if err != nil {
		serverError(w, r, "loading category", err)
		return
	}

	heading := "Category"
	if category != nil {
		heading = category.Title
	}

	g.renderList(w, r, PhotoFilter{CategoryID: &id}, heading, map[string]any{"Category": category})
}

func (g *Gallery) UserList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		g.renderList(w, r, PhotoFilter{None: true}, "User", nil)
		return
	}

	author, err := getUserByID(g.db, id)
	if err != nil {
		serverError(w, r, "loading user", err)
		return
	}

	heading := "User"
	if author != nil {
		heading = fmt.Sprintf("Photos by %s", author.Username)
	}

	g.renderList(w, r, PhotoFilter{UserID: &id}, heading, map[string]any{"Author": author})
}

func (g *Gallery) renderList(w http.ResponseWriter, r *http.Request, filter PhotoFilter, heading string, extra map[string]any) {
	page, err := listPhotos(r.Context(), g.db, filter, parsePage(r))
	if err != nil {
		serverError(w, r, "listing photos", err)
		return
	}

	categories, err := listCategories(r.Context(), g.db)
	if err != nil {
		serverError(w, r, "listing categories", err)
		return
	}

	data := g.baseData(w, r, heading)
	data["Page"] = page
	data["Categories"] = categories
	for k, v := range extra {
		data[k] = v
	}

	g.render(w, r, http.StatusOK, "index.html", data)
}

func (g *Gallery) CreatePhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		g.renderPhotoForm(w, r, http.StatusOK, &photoForm{})
		return
	}

	maxBytes := g.cfg.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	if !validateCSRF(r) {
		http.Error(w, "Invalid CSRF token", http.StatusForbidden)
		return
	}

	form, err := readPhotoForm(r.Context(), g.db, r, maxBytes)
	if err != nil {
		serverError(w, r, "reading photo form", err)
		return
	}
	if !form.Valid() {
		g.renderPhotoForm(w, r, http.StatusUnprocessableEntity, form)
		return
	}

	stored, err := storeImage(r.Context(), g.store, form.data, form.ext, form.img)
	if err != nil {
		serverError(w, r, "storing image", err)
		return
	}

	photo := PhotoPost{
		Title:      form.Title,
		Image:      stored.Key,
		Thumbnail:  stored.ThumbnailKey,
		CategoryID: form.categoryID,
		UserID:     actor(r).ID,
		PostedAt:   g.now(),
	}
	if err := createPhoto(r.Context(), g.db, &photo); err != nil {
		removeImage(r.Context(), g.store, stored)
		serverError(w, r, "creating photo", err)
		return
	}

	logJSON("INFO", "photo posted", map[string]any{
		"photo_id": photo.ID,
		"user_id":  photo.UserID,
	})
	http.Redirect(w, r, postDoneURL, http.StatusSeeOther)
}

func (g *Gallery) renderPhotoForm(w http.ResponseWriter, r *http.Request, status int, form *photoForm) {
	categories, err := listCategories(r.Context(), g.db)
	if err != nil {
		serverError(w, r, "listing categories", err)
		return
	}

	data := g.baseData(w, r, "Post a photo")
	data["Form"] = form
	data["Categories"] = categories
	g.render(w, r, status, "post_photo.html", data)
}

func (g *Gallery) PostDone(w http.ResponseWriter, r *http.Request) {
	g.render(w, r, http.StatusOK, "post_success.html", g.baseData(w, r, "Posted"))
}

func (g *Gallery) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		data := g.baseData(w, r, "Log in")
		data["Next"] = safeNext(r.URL.Query().Get("next"))
		data["Username"] = ""
		g.render(w, r, http.StatusOK, "login.html", data)
		return
	}

	if !parseFormWithCSRF(w, r) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	next := safeNext(r.FormValue("next"))

	user, err := authenticate(g.db, username, r.FormValue("password"))
	if err != nil {
		serverError(w, r, "authenticating", err)
		return
	}
	if user == nil {
		logJSON("WARN", "failed login", map[string]any{"username": username})
		data := g.baseData(w, r, "Log in")
		data["Next"] = next
		data["Username"] = username
		data["Error"] = "Please enter a correct username and password."
		g.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}

	if err := g.startSession(w, user); err != nil {
		serverError(w, r, "creating session", err)
		return
	}

	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (g *Gallery) startSession(w http.ResponseWriter, user *User) error {
	token, err := createSession(g.db, user.ID)
	if err != nil {
		return err
	}
	setSessionCookie(w, token)
	return nil
}

func (g *Gallery) Logout(w http.ResponseWriter, r *http.Request) {
	if !parseFormWithCSRF(w, r) {
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := deleteSession(g.db, cookie.Value); err != nil {
			serverError(w, r, "deleting session", err)
			return
		}
	}

	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

const minPasswordLength = 8

func (g *Gallery) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		data := g.baseData(w, r, "Sign up")
		data["Username"] = ""
		g.render(w, r, http.StatusOK, "signup.html", data)
		return
	}

	if !parseFormWithCSRF(w, r) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	errs := make(map[string]string)
	switch {
	case username == "":
		errs["username"] = "This field is required."
	case len(username) > 150:
		errs["username"] = "Ensure this value has at most 150 characters."
	}
	switch {
	case len(password) < minPasswordLength:
		errs["password"] = "This password is too short. It must contain at least 8 characters."
	case password != r.FormValue("password_confirm"):
		errs["password_confirm"] = "The two password fields didn't match."
	}

	var user *User
	if len(errs) == 0 {
		var err error
		user, err = createUser(g.db, username, password)
		if errors.Is(err, errUsernameTaken) {
			errs["username"] = "A user with that username already exists."
		} else if err != nil {
			serverError(w, r, "creating user", err)
			return
		}
	}

	if len(errs) > 0 {
		data := g.baseData(w, r, "Sign up")
		data["Username"] = username
		data["Errors"] = errs
		g.render(w, r, http.StatusUnprocessableEntity, "signup.html", data)
		return
	}

	if err := g.startSession(w, user); err != nil {
		serverError(w, r, "creating session", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
