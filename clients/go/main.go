// Personas CLI - Command line client for Personas AI
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Sahil21666x/KE-PersonasAI/clients/go/personas"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := personas.NewClient(os.Getenv("PERSONAS_URL"), "")
	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "agents":
		agents, err := client.ListAgents(ctx)
		exitOnError(err)
		for _, a := range agents {
			custom := ""
			if a.IsCustom {
				custom = " (custom)"
			}
			fmt.Printf("  %s %-14s %s%s\n", a.Avatar, a.ID, a.Name, custom)
		}

	case "ask":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: personas ask <agent,agent,...> <message>")
			os.Exit(1)
		}
		resp, err := client.SendMessage(ctx, personas.SendMessageRequest{
			Message:      strings.Join(os.Args[3:], " "),
			ActiveAgents: strings.Split(os.Args[2], ","),
		})
		exitOnError(err)
		printReplies(resp)

	case "reply":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: personas reply <conversation_id> <message>")
			os.Exit(1)
		}
		resp, err := client.SendMessage(ctx, personas.SendMessageRequest{
			ConversationID: os.Args[2],
			Message:        strings.Join(os.Args[3:], " "),
		})
		exitOnError(err)
		printReplies(resp)

	case "history":
		convs, err := client.ListConversations(ctx)
		exitOnError(err)
		for _, c := range convs {
			fmt.Printf("  %s  %s (%d unread)\n", c.ID, c.Title, c.Unread)
		}

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: personas read <conversation_id>")
			os.Exit(1)
		}
		msgs, err := client.GetMessages(ctx, os.Args[2])
		exitOnError(err)
		for _, m := range msgs {
			from := "you"
			if m.Agent != nil {
				from = m.Agent.Name
			}
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), from, m.Content)
		}

	case "create":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: personas create <name> <personality>")
			os.Exit(1)
		}
		agent, err := client.CreateAgent(ctx, personas.CreateAgentRequest{
			Name:        os.Args[2],
			Personality: strings.Join(os.Args[3:], " "),
		})
		exitOnError(err)
		fmt.Printf("Created: %s\n", agent.ID)

	case "delete":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: personas delete <agent_id>")
			os.Exit(1)
		}
		exitOnError(client.DeleteAgent(ctx, os.Args[2]))
		fmt.Println("Deleted")

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Personas CLI - chat with a panel of AI personas

Usage: personas <command> [options]

Commands:
  agents                          List built-in and custom agents
  ask <agent,agent,...> <message> Start a conversation
  reply <conversation> <message>  Continue a conversation
  history                         List conversations
  read <conversation>             Print a conversation
  create <name> <personality>     Create a custom agent
  delete <agent_id>               Delete a custom agent
  health                          Check server health

Environment:
  PERSONAS_URL    Server URL (default: http://localhost:8080)
  PERSONAS_TOKEN  Bearer token (see cmd/token)`)
}

func printReplies(resp *personas.SendMessageResponse) {
	fmt.Printf("conversation %s (%d of %d agents replied)\n", resp.ConversationID, len(resp.Agents), resp.RespondingAgents)
	for _, a := range resp.Agents {
		fmt.Printf("\n%s %s:\n%s\n", a.Avatar, a.AgentName, a.Response)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
