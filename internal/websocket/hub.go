package websocket

import (
	"log"
)

// pushEnvelope carries a serialized payload destined for one user.
type pushEnvelope struct {
	userID  uint
	payload []byte
}

// Hub maintains the set of connected clients and pushes notification
// payloads to them. Delivery is one-way server to client; the connection
// carries no application messages upstream.
type Hub struct {
	// Registered clients, mapping UserID to Client. One connection per user;
	// a new connection replaces the old one.
	clients map[uint]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Payloads aimed at a specific user.
	push chan pushEnvelope
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uint]*Client),
		push:       make(chan pushEnvelope, 256),
	}
}

// PushToUser queues a payload for delivery to the given user, if connected.
// The send is non-blocking so a full hub never stalls the caller (the Kafka
// consumer); an offline user simply misses the push and reads the
// notification from the database later.
func (h *Hub) PushToUser(userID uint, payload []byte) {
	select {
	case h.push <- pushEnvelope{userID: userID, payload: payload}:
	default:
		log.Printf("警告: Hub push channel is full. Dropping payload for user %d", userID)
	}
}

// Run starts the hub and listens for events on its channels.
func (h *Hub) Run() {
	log.Println("WebSocket Hub Run loop started.")
	for {
		select {
		case client := <-h.register:
			if existingClient, ok := h.clients[client.userID]; ok {
				log.Printf("警告: 用户 %d 已有连接，关闭旧连接并注册新连接。", client.userID)
				close(existingClient.send)
			}
			h.clients[client.userID] = client
			log.Printf("客户端已注册: UserID %d", client.userID)

		case client := <-h.unregister:
			// Only remove the stored client when it is the one unregistering;
			// a replaced connection must not evict its successor.
			if storedClient, ok := h.clients[client.userID]; ok && storedClient == client {
				delete(h.clients, client.userID)
				close(client.send)
				log.Printf("客户端已注销: UserID %d", client.userID)
			}

		case envelope := <-h.push:
			client, ok := h.clients[envelope.userID]
			if !ok {
				// User not connected; the notification stays in the database.
				continue
			}
			select {
			case client.send <- envelope.payload:
			default:
				// Slow or dead connection. Drop it.
				log.Printf("警告: UserID %d 的发送通道已满或关闭，移除客户端。", envelope.userID)
				close(client.send)
				delete(h.clients, envelope.userID)
			}
		}
	}
}
