package main

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Gallery struct {
	db        *gorm.DB
	store     ImageStore
	cfg       *Config
	templates map[string]*template.Template
	now       func() time.Time
}

func NewGallery(db *gorm.DB, store ImageStore, cfg *Config) *Gallery {
	return &Gallery{
		db:        db,
		store:     store,
		cfg:       cfg,
		templates: loadTemplates(store),
		now:       time.Now,
	}
}

func (g *Gallery) routes() http.Handler {
	r := mux.NewRouter()

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	if g.cfg.StorageBackend == "local" {
		r.PathPrefix(mediaURLPrefix).Handler(http.StripPrefix(mediaURLPrefix, http.FileServer(http.Dir(g.cfg.MediaDir))))
	}

	// Public routes
	r.HandleFunc("/", g.Index).Methods(http.MethodGet)
	r.HandleFunc("/photo-list/{category:[0-9]+}", g.CategoryList).Methods(http.MethodGet)
	r.HandleFunc("/user-list/{user:[0-9]+}", g.UserList).Methods(http.MethodGet)
	r.HandleFunc(postDoneURL, g.PostDone).Methods(http.MethodGet)
	r.HandleFunc(loginURL, g.Login).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout", g.Logout).Methods(http.MethodPost)
	r.HandleFunc("/signup", g.Signup).Methods(http.MethodGet, http.MethodPost)

	// Protected routes
	r.HandleFunc("/post/", g.requireAuth(g.CreatePhoto)).Methods(http.MethodGet, http.MethodPost)

	r.Use(accessLog)
	return r
}

func main() {
	godotenv.Load()

	cfg := loadConfig()
	initAuth(cfg)

	db, err := openStore(cfg)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer closeStore(db)

	if err = initDB(db); err != nil {
		log.Fatalf("initializing database: %v", err)
	}

	if err = seedCategories(db, cfg.Categories); err != nil {
		log.Fatalf("seeding categories: %v", err)
	}

	if err = seedAdmin(db, cfg.AdminUser, cfg.AdminPass); err != nil {
		log.Fatalf("seeding admin user: %v", err)
	}

	if err = seedSettings(db, cfg.SiteIntro); err != nil {
		log.Fatalf("seeding settings: %v", err)
	}

	if err = cleanupExpiredSessions(db); err != nil {
		log.Printf("cleaning up expired sessions: %v", err)
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if err := cleanupExpiredSessions(db); err != nil {
				log.Printf("cleaning up expired sessions: %v", err)
			}
		}
	}()

	store, err := newImageStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("opening image storage: %v", err)
	}

	gallery := NewGallery(db, store, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gallery.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}
