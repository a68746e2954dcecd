// Package main provides a load tool for project event websockets: it opens many dashboard
// subscribers, pushes testimonials through the public collection endpoint and counts deliveries.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	Submissions          int64
	SubmissionsRejected  int64
	EventsReceived       int64
	Errors               int64
}

var metrics Metrics

type target struct {
	host      string
	projectID string
	slug      string
	bearer    string
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	projectID := flag.String("project", "", "Project ID to subscribe to")
	member := flag.String("member", "member_demo", "Member id to sign the session token for")
	secret := flag.String("secret", os.Getenv("AUTH_JWT_SECRET"), "Session signing secret")
	issuer := flag.String("issuer", os.Getenv("AUTH_ISSUER"), "Session issuer")
	audience := flag.String("audience", os.Getenv("AUTH_AUDIENCE"), "Session audience")
	clients := flag.Int("clients", 50, "Number of concurrent subscribers")
	rate := flag.Duration("every", 500*time.Millisecond, "Interval between submissions")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	if *projectID == "" || *secret == "" {
		log.Fatal("usage: eventstress -project <id> -secret <AUTH_JWT_SECRET> [-clients n]")
	}

	token, err := signSession(*secret, *issuer, *audience, *member)
	if err != nil {
		log.Fatalf("sign session: %v", err)
	}
	t := target{host: *host, projectID: *projectID, bearer: "Bearer " + token}
	if t.slug, err = projectSlug(t); err != nil {
		log.Fatalf("resolve project: %v", err)
	}

	log.Printf("Target: %s project=%s (%s)", t.host, t.projectID, t.slug)
	log.Printf("Subscribers: %d, duration: %v", *clients, *duration)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go subscribe(t, token, stopChan, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	wg.Add(1)
	go submitLoop(t, *rate, stopChan, &wg)

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-interrupt:
		log.Println("Interrupted")
	}

	close(stopChan)
	wg.Wait()
	printMetrics(*clients)
}

func signSession(secret, issuer, audience, member string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  member,
		"name": "Event stress",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func doJSON(method, rawURL, bearer string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequest(method, rawURL, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func projectSlug(t target) (string, error) {
	var memberships []struct {
		ProjectID string `json:"project_id"`
		Project   struct {
			Slug string `json:"slug"`
		} `json:"project"`
	}
	status, err := doJSON(http.MethodGet, fmt.Sprintf("http://%s/api/projects", t.host), t.bearer, nil, &memberships)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("listing projects returned %d", status)
	}
	for _, m := range memberships {
		if m.ProjectID == t.projectID {
			return m.Project.Slug, nil
		}
	}
	return "", fmt.Errorf("member is not part of project %s", t.projectID)
}

func subscribe(t target, token string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{
		Scheme:   "ws",
		Host:     t.host,
		Path:     "/api/projects/" + t.projectID + "/events",
		RawQuery: "token=" + url.QueryEscape(token),
	}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	go func() {
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}
			var event struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(raw, &event) == nil && event.Type == "testimonial.submitted" {
				atomic.AddInt64(&metrics.EventsReceived, 1)
			}
		}
	}()

	<-stopChan
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// submitLoop issues a token and immediately redeems it, once per tick.
func submitLoop(t target, every time.Duration, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	base := fmt.Sprintf("http://%s/api", t.host)
	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			var issued struct {
				Token string `json:"token"`
			}
			status, err := doJSON(http.MethodPost, base+"/projects/"+t.projectID+"/tokens", t.bearer,
				map[string]string{"description": "event stress"}, &issued)
			if err != nil || status != http.StatusCreated {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}

			status, err = doJSON(http.MethodPost, base+"/public/collect/"+url.PathEscape(t.slug), "", map[string]any{
				"token":         issued.Token,
				"customer_name": "Load Tester",
				"rating":        5,
				"text":          "Submitted by the event stress tool at " + time.Now().Format(time.RFC3339),
			}, nil)
			switch {
			case err != nil:
				atomic.AddInt64(&metrics.Errors, 1)
			case status == http.StatusCreated:
				atomic.AddInt64(&metrics.Submissions, 1)
			default:
				atomic.AddInt64(&metrics.SubmissionsRejected, 1)
			}
		}
	}
}

func printMetrics(clients int) {
	submitted := atomic.LoadInt64(&metrics.Submissions)
	connected := atomic.LoadInt64(&metrics.ConnectionsSuccess)
	received := atomic.LoadInt64(&metrics.EventsReceived)

	log.Println("Test Results")
	log.Println("============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", connected)
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Submissions Accepted: %d", submitted)
	log.Printf("Submissions Rejected: %d", atomic.LoadInt64(&metrics.SubmissionsRejected))
	log.Printf("Events Received: %d", received)
	if expected := submitted * connected; expected > 0 {
		log.Printf("Delivery Ratio: %.2f%% of %d expected (%d subscribers requested)",
			100*float64(received)/float64(expected), expected, clients)
	}
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
