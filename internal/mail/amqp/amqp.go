package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"account_service/internal/mail"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func New(urlForConn string, queueName string) (*Client, error) {
	const op = "mail.amqp.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

type payload struct {
	To        string `json:"to"`
	Purpose   string `json:"purpose"`
	AccountID string `json:"account_id,omitempty"`
	Token     string `json:"token,omitempty"`
}

// * Send публикует письмо в очередь; доставку по SMTP выполняет отдельный
// консьюмер. Ошибка публикации означает, что письмо не уйдет.
func (c *Client) Send(ctx context.Context, kind mail.Kind, msg mail.Message) error {
	const op = "mail.amqp.Send"

	body, err := json.Marshal(payload{
		To:        msg.Email,
		Purpose:   string(kind),
		AccountID: msg.AccountID,
		Token:     msg.Secret,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.channel.PublishWithContext(
		ctx,
		"",
		c.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (c *Client) Close() {
	_ = c.channel.Close()
	_ = c.conn.Close()
}
