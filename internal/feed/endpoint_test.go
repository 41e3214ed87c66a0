package feed

import "testing"

func TestEndpoint(t *testing.T) {
	cases := []struct {
		origin string
		port   int
		path   string
		want   string
	}{
		{"http://localhost:5173", 8080, "/ws", "ws://localhost:8080/ws"},
		{"https://fleet.example.com/dash", 8080, "/ws", "wss://fleet.example.com:8080/ws"},
		{"HTTPS://fleet.example.com", 9000, "feed", "wss://fleet.example.com:9000/feed"},
		{"http://[::1]:3000", 8080, "/ws", "ws://[::1]:8080/ws"},
		{"file://host/x", 8080, "/ws", "ws://host:8080/ws"},
	}
	for _, tc := range cases {
		got, err := Endpoint(tc.origin, tc.port, tc.path)
		if err != nil {
			t.Fatalf("Endpoint(%q): %v", tc.origin, err)
		}
		if got != tc.want {
			t.Fatalf("Endpoint(%q)=%q want %q", tc.origin, got, tc.want)
		}
	}
}

func TestEndpoint_NoHost(t *testing.T) {
	if _, err := Endpoint("/relative", 8080, "/ws"); err == nil {
		t.Fatalf("expected error")
	}
}
