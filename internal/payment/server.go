package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yadbot/yadbot/internal/lib/sl"
)

const successPage = `<!DOCTYPE html>
<html lang="fa" dir="rtl">
<head><meta charset="UTF-8"><title>پرداخت موفق</title></head>
<body style="font-family:Tahoma,sans-serif;text-align:center;padding-top:4rem">
<h2>✅ پرداخت موفق بود</h2>
<p>اشتراک شما فعال شد. به ربات تلگرام برگردید.</p>
</body>
</html>`

const failPage = `<!DOCTYPE html>
<html lang="fa" dir="rtl">
<head><meta charset="UTF-8"><title>پرداخت ناموفق</title></head>
<body style="font-family:Tahoma,sans-serif;text-align:center;padding-top:4rem">
<h2>❌ پرداخت ناموفق بود</h2>
<p>مبلغی کسر نشده است. می‌توانید دوباره تلاش کنید.</p>
</body>
</html>`

// NewCallbackRouter serves the gateway callback plus operational endpoints.
// Zibal redirects the payer's browser here with the track id in the query,
// and may also deliver the result as a JSON POST.
func NewCallbackRouter(svc *Service, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	handler := callbackHandler(svc, log)
	r.Get("/payment_callback", handler)
	r.Post("/payment_callback", handler)
	// Zibal occasionally doubles the leading slash.
	r.Get("//payment_callback", handler)
	r.Post("//payment_callback", handler)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})
	return r
}

func callbackHandler(svc *Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		trackID := req.URL.Query().Get("trackId")
		if trackID == "" && req.Method == http.MethodPost {
			var body struct {
				TrackID json.Number `json:"trackId"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err == nil {
				trackID = body.TrackID.String()
			}
		}
		if trackID == "" {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]string{"error": "missing trackId"})
			return
		}

		succeeded, err := svc.HandleCallback(req.Context(), trackID)
		if err != nil {
			log.Error("payment callback failed", slog.String("track_id", trackID), sl.Err(err))
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if succeeded {
			_, _ = w.Write([]byte(successPage))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(failPage))
	}
}
