package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Frame struct {
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Question struct {
	SnippetID string `json:"snippetId"`
	AudioURL  string `json:"audioUrl"`
}

type QuestionSet struct {
	Snippets []Question `json:"snippets"`
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

type Client struct {
	userID    string
	roomCode  string
	questions QuestionSet
	round     int
	startedAt time.Time

	conn   *websocket.Conn
	wsDone chan struct{}
	writeM sync.Mutex
	nextID int

	mu sync.Mutex
}

func NewClient(userID string) *Client {
	return &Client{
		userID: userID,
		wsDone: make(chan struct{}),
	}
}

func (c *Client) Connect(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %v", err)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := url.URL{Scheme: scheme, Host: u.Host, Path: "/api/v1/ws"}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connection failed: %v", err)
	}
	c.conn = conn

	go c.listen()
	return nil
}

func (c *Client) send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.writeM.Lock()
	defer c.writeM.Unlock()

	c.nextID++
	return c.conn.WriteJSON(Frame{ID: strconv.Itoa(c.nextID), Event: event, Payload: raw})
}

func (c *Client) listen() {
	defer close(c.wsDone)

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			fmt.Printf("websocket closed: %v\n", err)
			return
		}
		c.handle(f)
	}
}

func (c *Client) handle(f Frame) {
	if f.ID != "" {
		c.handleAck(f)
		return
	}

	switch f.Event {
	case "room:update":
		var room struct {
			Code        string `json:"code"`
			Status      string `json:"status"`
			PlayerCount int    `json:"playerCount"`
			MaxPlayers  int    `json:"maxPlayers"`
		}
		_ = json.Unmarshal(f.Payload, &room)
		c.mu.Lock()
		c.roomCode = room.Code
		c.mu.Unlock()
		fmt.Printf("room %s [%s] %d/%d players\n", room.Code, room.Status, room.PlayerCount, room.MaxPlayers)

	case "game:start":
		var q QuestionSet
		_ = json.Unmarshal(f.Payload, &q)
		c.mu.Lock()
		c.questions, c.round, c.startedAt = q, 0, time.Now()
		c.mu.Unlock()
		fmt.Printf("game started, %d rounds\n", len(q.Snippets))
		c.announceRound()

	case "game:leaderboardUpdate", "game:end":
		var board struct {
			Leaderboard []LeaderboardEntry `json:"leaderboard"`
		}
		_ = json.Unmarshal(f.Payload, &board)
		if f.Event == "game:end" {
			fmt.Println("game over")
		}
		for i, e := range board.Leaderboard {
			fmt.Printf("  %d. %-16s %6d\n", i+1, e.Name, e.Score)
		}

	case "room:deleted":
		fmt.Println("room deleted")
		c.mu.Lock()
		c.roomCode = ""
		c.mu.Unlock()

	case "room:error", "game:error":
		var msg string
		_ = json.Unmarshal(f.Payload, &msg)
		fmt.Printf("error: %s\n", msg)

	case "newGuess":
		var g struct {
			PlayerID string `json:"playerId"`
			Guess    string `json:"guess"`
		}
		_ = json.Unmarshal(f.Payload, &g)
		fmt.Printf("%s guessed %q\n", g.PlayerID, g.Guess)
	}
}

func (c *Client) handleAck(f Frame) {
	var ack struct {
		OK           bool   `json:"ok"`
		Error        string `json:"error"`
		Correct      bool   `json:"correct"`
		Concluded    bool   `json:"concluded"`
		Score        int    `json:"score"`
		AttemptsLeft int    `json:"attemptsLeft"`
		ForceAdvance bool   `json:"forceAdvance"`
	}
	_ = json.Unmarshal(f.Payload, &ack)

	if f.Event != "game:answer" {
		if !ack.OK {
			fmt.Printf("%s failed: %s\n", f.Event, ack.Error)
		}
		return
	}

	switch {
	case ack.Correct:
		fmt.Printf("correct! score %d\n", ack.Score)
	case ack.OK:
		fmt.Printf("wrong, %d attempts left\n", ack.AttemptsLeft)
	default:
		fmt.Printf("answer rejected: %s\n", ack.Error)
	}
	if ack.Concluded || ack.ForceAdvance {
		c.mu.Lock()
		c.round++
		c.startedAt = time.Now()
		c.mu.Unlock()
		c.announceRound()
	}
}

func (c *Client) announceRound() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.round >= len(c.questions.Snippets) {
		fmt.Println("all rounds answered, waiting for the others")
		return
	}
	fmt.Printf("round %d: %s\n", c.round+1, c.questions.Snippets[c.round].AudioURL)
}

func (c *Client) CreateRoom() error {
	return c.send("createRoom", map[string]any{"hostId": c.userID})
}

func (c *Client) JoinRoom(code, passcode string) error {
	return c.send("joinRoom", map[string]any{"code": code, "userId": c.userID, "passcode": passcode})
}

func (c *Client) StartGame() error {
	c.mu.Lock()
	code := c.roomCode
	c.mu.Unlock()
	return c.send("startGame", map[string]any{"code": code, "hostId": c.userID})
}

func (c *Client) Answer(guess string) error {
	c.mu.Lock()
	round, elapsed := c.round, time.Since(c.startedAt).Milliseconds()
	c.mu.Unlock()
	return c.send("game:answer", map[string]any{
		"userId":      c.userID,
		"roundIndex":  round,
		"guess":       guess,
		"snippetSize": 5,
		"elapsedMs":   elapsed,
	})
}

func (c *Client) EndGame() error {
	return c.send("endGame", map[string]any{"userId": c.userID})
}

func (c *Client) LeaveRoom() error {
	return c.send("leaveRoom", map[string]any{"userId": c.userID})
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
		<-c.wsDone
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	userID := flag.String("user", "", "user id to play as")
	flag.Parse()

	if *userID == "" {
		fmt.Println("usage: client -user <id> [-url http://host:port]")
		os.Exit(2)
	}

	client := NewClient(*userID)
	if err := client.Connect(*baseURL); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("=== SoundByte Console Client ===")
	fmt.Println("commands: create | join <code> [passcode] | start | a <guess> | end | leave | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")

		var err error
		switch cmd {
		case "create":
			err = client.CreateRoom()
		case "join":
			code, passcode, _ := strings.Cut(arg, " ")
			err = client.JoinRoom(code, passcode)
		case "start":
			err = client.StartGame()
		case "a":
			err = client.Answer(arg)
		case "end":
			err = client.EndGame()
		case "leave":
			err = client.LeaveRoom()
		case "quit":
			return
		case "":
		default:
			fmt.Println("unknown command")
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}
