package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, research runs are long
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	token := os.Getenv("TEST_USER_TOKEN")
	if token == "" {
		color.Red("TEST_USER_TOKEN is required (a valid user JWT)")
		os.Exit(1)
	}

	color.Cyan("🚀 Starting Deep Research API Test\n")

	// 1. Start a research session
	color.Yellow("\n[USER] 1. Start Research Session")
	startReq := map[string]interface{}{
		"question": "What are the tradeoffs between SSE and WebSockets for server push?",
	}
	resp, body, err := sendRequest("POST", "/research/v1/start", token, startReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var startResp map[string]interface{}
	json.Unmarshal(body, &startResp)
	prettyPrint(startResp)

	var sessionID string
	if data, ok := startResp["data"].(map[string]interface{}); ok {
		if id, ok := data["sessionId"].(string); ok {
			sessionID = id
		}
	}
	if sessionID == "" {
		color.Red("No session id in response, aborting")
		os.Exit(1)
	}

	// 2. Follow the SSE progress stream until a terminal frame
	color.Yellow("\n[USER] 2. Stream Progress (SSE)")
	streamReq, _ := http.NewRequest("GET", baseURL+"/research/v1/stream/"+sessionID, nil)
	streamReq.Header.Set("Authorization", "Bearer "+token)
	streamResp, err := (&http.Client{}).Do(streamReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer streamResp.Body.Close()

	scanner := bufio.NewScanner(streamResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			continue
		}
		frameType, _ := frame["type"].(string)
		status, _ := frame["status"].(string)
		progress, _ := frame["progress"].(float64)
		color.Green("  %s  status=%s progress=%.0f%%", frameType, status, progress)
		if frameType == "completed" || frameType == "error" || frameType == "cancelled" {
			break
		}
	}

	// 3. Fetch the final status
	color.Yellow("\n[USER] 3. Get Session Status")
	resp, body, err = sendRequest("GET", "/research/v1/status/"+sessionID, token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var statusResp map[string]interface{}
	json.Unmarshal(body, &statusResp)
	prettyPrint(statusResp)

	// 4. List the generated files
	color.Yellow("\n[USER] 4. List Generated Files")
	resp, body, err = sendRequest("GET", "/research/v1/files/"+sessionID, token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var filesResp map[string]interface{}
	json.Unmarshal(body, &filesResp)
	prettyPrint(filesResp)

	// 5. Research history
	color.Yellow("\n[USER] 5. Get Research History")
	resp, body, err = sendRequest("GET", "/research/v1/history", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var historyResp map[string]interface{}
	json.Unmarshal(body, &historyResp)
	prettyPrint(historyResp)

	color.Cyan("\n✅ Done at %s", time.Now().Format(time.RFC3339))
}
