package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lumagram/internal/handler"
	"lumagram/internal/httputil"
	authmw "lumagram/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	FollowHandler  *handler.FollowHandler
	PostHandler    *handler.PostHandler
	CommentHandler *handler.CommentHandler
	TokenVerifier  authmw.TokenVerifier
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Public endpoints with optional authentication. A valid token enriches
	// responses with is_following / is_liked; an invalid one is ignored.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(cfg.TokenVerifier))

		r.Get("/users/search", cfg.UserHandler.Search)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/posts", cfg.PostHandler.GetUserPosts)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/likes", cfg.PostHandler.GetLikers)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.TokenVerifier))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Put("/me", cfg.UserHandler.UpdateProfile)
		r.Put("/me/password", cfg.AuthHandler.ChangePassword)
		r.Post("/me/avatar", cfg.UserHandler.UploadAvatar)

		// Follow/unfollow actions
		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

		// Feed endpoint
		r.Get("/feed", cfg.PostHandler.Feed)

		// Post endpoints
		r.Post("/posts", cfg.PostHandler.Create)
		r.Patch("/posts/{id}", cfg.PostHandler.Update)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Post("/posts/{id}/like", cfg.PostHandler.Like)
		r.Delete("/posts/{id}/like", cfg.PostHandler.Unlike)

		// Comment endpoints
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
		r.Patch("/comments/{id}", cfg.CommentHandler.Update)
		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)

		// Media uploads (server-side to R2)
		r.Post("/media/posts", cfg.PostHandler.UploadMedia)
	})

	return r
}
