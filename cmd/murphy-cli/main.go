// Package main provides a terminal chat client for the Murphy WebSocket gateway.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Daethyra/Murphy/internal/protocol"
)

// Client represents a WebSocket chat client.
type Client struct {
	conn      *websocket.Conn
	channelID string
	done      chan struct{}
}

// NewClient creates a new client and connects to the gateway.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendHello joins a channel and waits for hello_ack.
func (c *Client) SendHello(userID, userName, channelID, channelKind string) error {
	msg := protocol.HelloMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHello,
			Ts:        time.Now().UnixMilli(),
			ChannelID: channelID,
		},
		UserID:      userID,
		UserName:    userName,
		ChannelKind: channelKind,
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	// Wait for hello_ack
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}

	if base.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}

	if base.Type != protocol.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.channelID = base.ChannelID
	return nil
}

// SendPost posts a message to the joined channel.
func (c *Client) SendPost(content, replyTo string, attachment *protocol.Attachment) error {
	msg := protocol.PostMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypePost,
			Ts:        time.Now().UnixMilli(),
			ChannelID: c.channelID,
		},
		Content:    content,
		ReplyTo:    replyTo,
		Attachment: attachment,
	}
	return c.conn.WriteJSON(msg)
}

// ReadMessages reads and prints channel events from the gateway.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}

			var base protocol.BaseMessage
			if err := json.Unmarshal(data, &base); err != nil {
				log.Printf("Unmarshal error: %v", err)
				continue
			}

			switch base.Type {
			case protocol.TypeMessage:
				var ev protocol.MessageEvent
				if err := json.Unmarshal(data, &ev); err != nil {
					log.Printf("Unmarshal error: %v", err)
					continue
				}
				if ev.ReplyTo != "" {
					fmt.Printf("\n%s (re %s): %s\n> ", ev.AuthorName, ev.ReplyTo, ev.Content)
				} else {
					fmt.Printf("\n%s: %s\n> ", ev.AuthorName, ev.Content)
				}
			case protocol.TypeError:
				var errMsg protocol.ErrorMessage
				json.Unmarshal(data, &errMsg)
				fmt.Printf("\nERROR %s: %s\n> ", errMsg.Code, errMsg.Message)
			default:
				fmt.Printf("\n[%s] %s\n> ", base.Type, string(data))
			}
		}
	}
}

// loadAttachment reads a local file into the wire attachment form. The
// gateway only inlines files named message.txt.
func loadAttachment(path string) (*protocol.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &protocol.Attachment{Filename: "message.txt", Content: data}, nil
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket gateway address")
	userID := flag.String("user", "", "user ID (required)")
	userName := flag.String("name", "", "display name (defaults to user ID)")
	channelID := flag.String("channel", "", "channel ID (empty to create a new channel)")
	channelKind := flag.String("kind", "text", "channel kind: text, thread or dm")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if *userID == "" {
		log.Fatal("-user is required")
	}

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.SendHello(*userID, *userName, *channelID, *channelKind); err != nil {
		log.Fatalf("Hello failed: %v", err)
	}

	fmt.Printf("Joined channel: %s\n", client.channelID)
	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /reply <message_id> <text>, /attach <file> <text>, /quit")
	fmt.Println()

	// Start reading messages in background
	go client.ReadMessages()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		default:
			if !scanner.Scan() {
				return
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			if input == "/quit" {
				fmt.Println("Bye!")
				return
			}

			var replyTo string
			var attachment *protocol.Attachment

			if rest, ok := strings.CutPrefix(input, "/reply "); ok {
				parts := strings.SplitN(rest, " ", 2)
				if len(parts) != 2 {
					fmt.Println("usage: /reply <message_id> <text>")
					continue
				}
				replyTo, input = parts[0], parts[1]
			} else if rest, ok := strings.CutPrefix(input, "/attach "); ok {
				parts := strings.SplitN(rest, " ", 2)
				if len(parts) != 2 {
					fmt.Println("usage: /attach <file> <text>")
					continue
				}
				attachment, err = loadAttachment(parts[0])
				if err != nil {
					log.Printf("Attach error: %v", err)
					continue
				}
				input = parts[1]
			}

			if err := client.SendPost(input, replyTo, attachment); err != nil {
				log.Printf("Send error: %v", err)
				continue
			}
		}
	}
}
