package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Small operator helper: logs in with the admin credential pair and
// registers one endpoint against a running API.
func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	token, err := login(api)
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Display name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Address to monitor (URL or host:port): ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		if _, err := url.ParseRequestURI(raw); err != nil {
			fmt.Println("Invalid URL.")
			return
		}
	}

	body, _ := json.Marshal(map[string]string{"name": name, "address": raw})
	req, _ := http.NewRequest(http.MethodPost, api+"/api/servers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		fmt.Println("Added! Check GET /api/servers for its status.")
	} else {
		fmt.Println("API returned status:", resp.Status)
	}
}

func login(api string) (string, error) {
	user := os.Getenv("ADMIN_USERNAME")
	pass := os.Getenv("ADMIN_PASSWORD")
	if user == "" {
		return "", fmt.Errorf("ADMIN_USERNAME not set")
	}
	body, _ := json.Marshal(map[string]string{"username": user, "password": pass})
	resp, err := http.Post(api+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}
