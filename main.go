package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/LayeredData/POI-Backend/internal/db"
	"github.com/LayeredData/POI-Backend/internal/middleware"
	"github.com/LayeredData/POI-Backend/internal/poiapi"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	d, err := db.Connect(dsn)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	poiapi.Init(d)

	h := &poiapi.Handler{DB: d, SRID: 4326}

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RateLimitMiddleware(10, 20))
	r.Get("/", RootHandler)

	r.Mount("/pois", poiapi.SetupRoutes(h))

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
