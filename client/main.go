package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"github.com/wfunc/rajamantri/network"
)

const usage = `commands:
  create NAME         create a room and sit in it
  join ROOM NAME      join an existing room
  players             list players in your room
  room                show room status
  assign              deal the roles (needs 4 players)
  role                show your role
  guess NAME          (Mantri) name the Chor
  results             show final scores
  quit`

// parse turns one input line into a message id and request body.
func parse(line string) (uint16, interface{}, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, nil
	}
	args := fields[1:]
	rest := strings.Join(args, " ")

	switch strings.ToLower(fields[0]) {
	case "create":
		if rest == "" {
			return 0, nil, fmt.Errorf("usage: create NAME")
		}
		return network.MsgTypeCreateRoom, network.CreateRoomRequest{PlayerName: rest}, nil
	case "join":
		if len(args) < 2 {
			return 0, nil, fmt.Errorf("usage: join ROOM NAME")
		}
		return network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: args[0], PlayerName: strings.Join(args[1:], " ")}, nil
	case "players":
		return network.MsgTypeListPlayers, nil, nil
	case "room":
		return network.MsgTypeRoomState, nil, nil
	case "assign":
		return network.MsgTypeAssignRoles, nil, nil
	case "role":
		return network.MsgTypeGetRole, nil, nil
	case "guess":
		if rest == "" {
			return 0, nil, fmt.Errorf("usage: guess NAME")
		}
		return network.MsgTypeGuess, network.GuessRequest{SuspectName: rest}, nil
	case "results":
		return network.MsgTypeResults, nil, nil
	case "ping":
		return network.MsgTypeHeartbeat, nil, nil
	}
	return 0, nil, fmt.Errorf("unknown command %q\n%s", fields[0], usage)
}

func main() {
	url := pflag.StringP("url", "u", "ws://localhost:8080/ws", "websocket endpoint")
	pflag.Parse()

	log.Printf("Connecting to %s", *url)
	conn, err := network.Dial(*url)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Println("Interrupt received, closing connection.")
		conn.Close()
		os.Exit(0)
	}()

	fmt.Println(usage)
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); scanner.Scan(); fmt.Print("> ") {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return
		}

		msgID, req, err := parse(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if msgID == 0 {
			continue
		}

		var data []byte
		if req != nil {
			if data, err = json.Marshal(req); err != nil {
				fmt.Println(err)
				continue
			}
		}
		if err := conn.Send(msgID, data); err != nil {
			log.Fatalf("Write error: %v", err)
		}

		packet, err := conn.ReadPacket()
		if err != nil {
			log.Fatalf("Read error: %v", err)
		}
		if packet.MsgID == network.MsgTypeError {
			var e network.ErrorResponse
			_ = json.Unmarshal(packet.Data, &e)
			fmt.Printf("error: %s: %s\n", e.Error, e.Message)
			continue
		}
		fmt.Printf("%s\n", packet.Data)
	}
}
