package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Bookings     *BookingHandler
	Resources    *ResourceHandler
	Availability *AvailabilityHandler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Bookings != nil {
		mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Bookings.List(w, r)
			case http.MethodPost:
				cfg.Bookings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/bookings/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, sub, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithBookingID(r.Context(), id)
			r = r.WithContext(ctx)

			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Bookings.Get(w, r)
				case http.MethodDelete:
					cfg.Bookings.Cancel(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "exceptions":
				switch r.Method {
				case http.MethodGet:
					cfg.Bookings.ListExceptions(w, r)
				case http.MethodPost:
					cfg.Bookings.CreateException(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/exceptions/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/exceptions/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			ctx := ContextWithExceptionID(r.Context(), id)
			cfg.Bookings.DeleteException(w, r.WithContext(ctx))
		})
	}

	if cfg.Resources != nil || cfg.Availability != nil {
		if cfg.Resources != nil {
			mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodGet:
					cfg.Resources.List(w, r)
				case http.MethodPost:
					cfg.Resources.Create(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			})
		}
		mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/resources/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, sub, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithResourceID(r.Context(), id)
			r = r.WithContext(ctx)

			switch sub {
			case "":
				if cfg.Resources == nil {
					http.NotFound(w, r)
					return
				}
				switch r.Method {
				case http.MethodGet:
					cfg.Resources.Get(w, r)
				case http.MethodPut:
					cfg.Resources.Update(w, r)
				case http.MethodDelete:
					cfg.Resources.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "availability":
				if cfg.Availability == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Availability.Availability(w, r)
			case "utilization":
				if cfg.Availability == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Availability.Utilization(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
