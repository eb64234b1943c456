package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
)

var requestCount atomic.Int64

const listingPage = `<html><body>
<article class="scholarship">
	<h2><a href="/scholarships/ntnu-cs-msc">NTNU Scholarship for MSc in Computer Science, Norway</a></h2>
	<p>Fully funded two-year masters programme in Trondheim.</p>
</article>
<article class="scholarship">
	<h2><a href="/scholarships/daad-ai">DAAD Graduate Funding for Artificial Intelligence, Germany</a></h2>
	<p>Monthly stipend for international students in Berlin and Munich.</p>
</article>
<article class="scholarship">
	<h2><a href="/scholarships/aalto-data">Aalto University Data Science Fellowship, Finland</a></h2>
	<p>Tuition waiver and stipend in Helsinki.</p>
</article>
</body></html>`

const feedPage = `<?xml version="1.0"?>
<rss version="2.0"><channel>
	<title>Scholarship Feed</title>
	<item>
		<title>Erasmus Mundus Joint Masters Grants in Software Engineering</title>
		<link>http://localhost:9090/scholarships/erasmus-se</link>
	</item>
</channel></rss>`

// A tiny fake scholarship source for exercising the watcher locally:
// one HTML listing page, one RSS feed, and one flaky page.
func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	http.HandleFunc("/listings", func(w http.ResponseWriter, r *http.Request) {
		logRequest(r, 200)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, listingPage)
	})

	http.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		logRequest(r, 200)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedPage)
	})

	// Fails twice, then succeeds, to exercise fetch retries.
	http.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1)%3 != 0 {
			logRequest(r, 503)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		logRequest(r, 200)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, listingPage)
	})

	log.Printf("Mock source server starting on :%s", port)
	log.Printf("  GET /listings  -> HTML listing page")
	log.Printf("  GET /feed.xml  -> RSS feed")
	log.Printf("  GET /flaky     -> 503 twice, then the listing page")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func logRequest(r *http.Request, status int) {
	fmt.Printf("%s %s -> %d | ua=%s\n", r.Method, r.URL.Path, status, r.Header.Get("User-Agent"))
}
