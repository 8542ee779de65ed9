package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Gael-devv/voltgo/internal/auth"
)

const infoBody = `{
	"revolt": "0.8.6",
	"ws": "wss://ws.revolt.chat",
	"app": "https://app.revolt.chat",
	"features": {
		"autumn": {"enabled": true, "url": "https://autumn.revolt.chat"},
		"january": {"enabled": true, "url": "https://jan.revolt.chat"},
		"voso": {"enabled": false, "url": ""}
	}
}`

func TestFetchAPIInfo(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("path = %q, want /", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, infoBody)
	})

	info, err := client.FetchAPIInfo(context.Background())
	if err != nil {
		t.Fatalf("FetchAPIInfo failed: %v", err)
	}

	if info.WS != "wss://ws.revolt.chat" {
		t.Errorf("WS = %q, want wss://ws.revolt.chat", info.WS)
	}
	if !info.Features.Autumn.Enabled {
		t.Error("autumn should be enabled")
	}
	if info.Features.Voso.Enabled {
		t.Error("voso should be disabled")
	}

	// The result is cached on the client.
	if client.Info() == nil || client.Info().Revolt != "0.8.6" {
		t.Errorf("cached info = %+v", client.Info())
	}
}

func TestStaticLogin(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			writeJSON(w, http.StatusOK, infoBody)
		case "/users/@me":
			if r.Header.Get("x-bot-token") != "good" {
				writeJSON(w, http.StatusUnauthorized, `{"type":"Unauthorized"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"_id":"01BOT","username":"helper","bot":{"owner":"01OWNER"}}`)
		default:
			http.NotFound(w, r)
		}
	})

	user, err := client.StaticLogin(context.Background(), auth.NewBotToken("good"))
	if err != nil {
		t.Fatalf("StaticLogin failed: %v", err)
	}
	if user.ID != "01BOT" || user.Username != "helper" {
		t.Errorf("user = %+v", user)
	}
	if client.Token().IsZero() {
		t.Error("token not installed after login")
	}
}

func TestStaticLogin_BadTokenRestoresPrevious(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			writeJSON(w, http.StatusOK, infoBody)
		case "/users/@me":
			writeJSON(w, http.StatusUnauthorized, `{"type":"Unauthorized"}`)
		default:
			http.NotFound(w, r)
		}
	})

	_, err := client.StaticLogin(context.Background(), auth.NewBotToken("bad"))

	var le *LoginError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoginError", err)
	}
	if le.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", le.Status)
	}
	if !client.Token().IsZero() {
		t.Error("rejected token was left installed")
	}
}

func autumnTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			// Capability info pointing Autumn back at this server.
			writeJSON(w, http.StatusOK, `{
				"revolt": "0.8.6",
				"ws": "wss://ws.revolt.chat",
				"features": {"autumn": {"enabled": true, "url": "`+serverURL(r)+`"}}
			}`)
			return
		}
		handler(w, r)
	})

	if _, err := client.FetchAPIInfo(context.Background()); err != nil {
		t.Fatalf("FetchAPIInfo failed: %v", err)
	}
	return client
}

func serverURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestUploadFile(t *testing.T) {
	client := autumnTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attachments" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{"id":"01FILE"}`)
	})

	id, err := client.UploadFile(context.Background(), "attachments", "cat.png", bytes.NewReader([]byte("png")))
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if id != "01FILE" {
		t.Errorf("id = %q, want 01FILE", id)
	}
}

func TestFetchFile(t *testing.T) {
	client := autumnTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/attachments/01FILE":
			w.Write([]byte("filebytes"))
		case "/attachments/01GONE":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	data, err := client.FetchFile(context.Background(), "attachments", "01FILE")
	if err != nil {
		t.Fatalf("FetchFile failed: %v", err)
	}
	if string(data) != "filebytes" {
		t.Errorf("data = %q, want filebytes", data)
	}

	_, err = client.FetchFile(context.Background(), "attachments", "01GONE")
	var nf *NotFound
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want *NotFound", err)
	}
}

func TestUploadFile_FeatureDisabled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"revolt":"0.8.6","ws":"wss://x","features":{"autumn":{"enabled":false,"url":""}}}`)
	})
	if _, err := client.FetchAPIInfo(context.Background()); err != nil {
		t.Fatalf("FetchAPIInfo failed: %v", err)
	}

	_, err := client.UploadFile(context.Background(), "attachments", "cat.png", bytes.NewReader(nil))
	if !errors.Is(err, ErrFeatureDisabled) {
		t.Errorf("err = %v, want ErrFeatureDisabled", err)
	}
}
