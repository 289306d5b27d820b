package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/redcon"
)

const RedisOk = "OK"

var address = flag.String("address", ":6380", "The ip:port to listen on for Redis protocol.")

var commandsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "redis_commands_total",
	Help: "Total number of Redis commands handled by command and status.",
}, []string{
	"command", // Upper-cased command name; "unknown" for unsupported commands.
	"status",  // ok | error
})

// redisCommand represents a Redis command with its arguments.
type redisCommand struct {
	command string
	args    []string
}

// redisOutput conforms to a real Redis server output on non pub / sub commands.
type redisOutput struct {
	closeConnection bool     // Closes the connection if true.
	writeNil        bool     // Writes a nil value if true.
	err             *string  // Error to return if set.
	writeInt        *int     // Writes an integer value if set.
	writeBulk       *string  // Writes a bulk string if set.
	writeArray      []string // Writes an array of bulk strings if isArray is set.
	isArray         bool
	writeString     string // Writes a simple string value otherwise.
}

func closeRedisConnection(msg string) redisOutput {
	return redisOutput{writeString: msg, closeConnection: true}
}

func writeRedisNil() redisOutput {
	return redisOutput{writeNil: true}
}

func writeRedisInt(i int) redisOutput {
	return redisOutput{writeInt: &i}
}

func writeRedisBool(b bool) redisOutput {
	if b {
		return writeRedisInt(1)
	}
	return writeRedisInt(0)
}

func writeRedisString(s string) redisOutput {
	return redisOutput{writeString: s}
}

func writeRedisBulk(s string) redisOutput {
	return redisOutput{writeBulk: &s}
}

func writeRedisArray(values []string) redisOutput {
	return redisOutput{writeArray: values, isArray: true}
}

func writeRedisError(err error) redisOutput {
	msg := "ERR " + err.Error()
	return redisOutput{err: &msg}
}

func wrongArgumentCount(command string) redisOutput {
	return writeRedisError(fmt.Errorf("wrong number of arguments for '%s' command", strings.ToLower(command)))
}

// redisWriter is the part of a redcon.Conn that Redis outputs are written to.
type redisWriter interface {
	WriteString(str string)
	WriteError(msg string)
	WriteInt(num int)
	WriteNull()
	WriteBulkString(bulk string)
	WriteArray(count int)
	Close() error
}

var _ redisWriter = (redcon.Conn)(nil)

// write sends the output to `conn`, closing it if requested.
func (ro redisOutput) write(conn redisWriter) {
	switch {
	case ro.err != nil:
		conn.WriteError(*ro.err)
	case ro.writeNil:
		conn.WriteNull()
	case ro.writeInt != nil:
		conn.WriteInt(*ro.writeInt)
	case ro.writeBulk != nil:
		conn.WriteBulkString(*ro.writeBulk)
	case ro.isArray:
		conn.WriteArray(len(ro.writeArray))
		for _, value := range ro.writeArray {
			conn.WriteBulkString(value)
		}
	default:
		conn.WriteString(ro.writeString)
	}
	if ro.closeConnection {
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close connection.", "error", err)
		}
	}
}

type redisHandler struct {
	store *SetStore
}

// newRedisHandler creates a new redisHandler.
func newRedisHandler(store *SetStore) (*redisHandler, error) {
	if store == nil {
		return nil, errors.New("expected a non-nil set store")
	}
	return &redisHandler{store: store}, nil
}

// handle runs `cmd` against the store. Command names are case-insensitive.
func (rh *redisHandler) handle(cmd redisCommand) redisOutput {
	command := strings.ToUpper(cmd.command)
	output := rh.dispatch(command, cmd.args)

	status := "ok"
	if output.err != nil {
		status = "error"
	}
	if _, known := supportedCommands[command]; !known {
		command = "unknown"
	}
	commandsMetric.WithLabelValues(command, status).Inc()
	return output
}

var supportedCommands = map[string]struct{}{
	"PING": {}, "QUIT": {}, "SADD": {}, "SREM": {}, "SISMEMBER": {}, "SCARD": {}, "SMEMBERS": {}, "SUNION": {},
	"KEYS": {}, "DEL": {}, "FLUSHALL": {},
}

func (rh *redisHandler) dispatch(command string, args []string) redisOutput {
	switch command {
	case "PING":
		switch len(args) {
		case 0:
			return writeRedisString("PONG")
		case 1:
			return writeRedisBulk(args[0])
		default:
			return wrongArgumentCount(command)
		}
	case "QUIT":
		return closeRedisConnection(RedisOk)
	case "SADD":
		if len(args) < 2 {
			return wrongArgumentCount(command)
		}
		return writeRedisInt(rh.store.Add(args[0], args[1:]...))
	case "SREM":
		if len(args) < 2 {
			return wrongArgumentCount(command)
		}
		return writeRedisInt(rh.store.Remove(args[0], args[1:]...))
	case "SISMEMBER":
		if len(args) != 2 {
			return wrongArgumentCount(command)
		}
		return writeRedisBool(rh.store.IsMember(args[0], args[1]))
	case "SCARD":
		if len(args) != 1 {
			return wrongArgumentCount(command)
		}
		return writeRedisInt(rh.store.Card(args[0]))
	case "SMEMBERS":
		if len(args) != 1 {
			return wrongArgumentCount(command)
		}
		return writeRedisArray(rh.store.Members(args[0]))
	case "SUNION":
		if len(args) < 1 {
			return wrongArgumentCount(command)
		}
		union, err := rh.store.Union(args...)
		if err != nil {
			return writeRedisError(err)
		}
		return writeRedisArray(union)
	case "KEYS":
		if len(args) != 1 {
			return wrongArgumentCount(command)
		}
		return writeRedisArray(rh.store.Keys(args[0]))
	case "DEL":
		if len(args) < 1 {
			return wrongArgumentCount(command)
		}
		return writeRedisInt(rh.store.Delete(args...))
	case "FLUSHALL":
		if len(args) > 1 {
			return wrongArgumentCount(command)
		}
		// The ASYNC / SYNC modifiers are accepted; both flush synchronously.
		if len(args) == 1 && !strings.EqualFold(args[0], "ASYNC") && !strings.EqualFold(args[0], "SYNC") {
			return writeRedisError(errors.New("syntax error"))
		}
		rh.store.Flush()
		return writeRedisString(RedisOk)
	default:
		return writeRedisError(fmt.Errorf("unknown command '%s'", command))
	}
}

// RunRedisServer starts a Redis protocol server serving the sets of `store` until `ctx` is cancelled.
func RunRedisServer(ctx context.Context, store *SetStore) error {
	if *address == "" {
		return errors.New("expected a non-empty --address flag")
	}

	redisHandler, err := newRedisHandler(store)
	if err != nil {
		return fmt.Errorf("failed to create a new redis handler: %w", err)
	}

	redisServer := redcon.NewServerNetwork("tcp" /*net*/, *address,
		/*handler*/ func(conn redcon.Conn, cmd redcon.Command) {
			// Convert redcon.Command to redisCommand.
			command := redisCommand{command: string(cmd.Args[0]), args: make([]string, len(cmd.Args)-1)}
			for i := 1; i < len(cmd.Args); i++ {
				command.args[i-1] = string(cmd.Args[i])
			}
			redisHandler.handle(command).write(conn)
		},
		/*accept*/ func(conn redcon.Conn) bool {
			slog.Debug("Accepted connection.", "remote", conn.RemoteAddr())
			return true // Accept all connections.
		},
		/*closed*/ func(conn redcon.Conn, err error) {
			if err != nil {
				slog.Debug("Connection closed with error.", "remote", conn.RemoteAddr(), "error", err)
			}
		})

	listenSignal := make(chan error, 1)
	serverErrSignal := make(chan error, 1)
	go func() {
		if err := redisServer.ListenServeAndSignal(listenSignal); err != nil {
			serverErrSignal <- err
		}
		close(serverErrSignal)
	}()
	// The server can only be closed once it's listening.
	if err := <-listenSignal; err != nil {
		return fmt.Errorf("failed to listen on '%s': %w", *address, err)
	}
	slog.Info("Serving Redis protocol.", "address", *address)

	select {
	case <-ctx.Done():
		if err := redisServer.Close(); err != nil {
			return fmt.Errorf("failed to close redis server: %w", err)
		}
		slog.Info("Redis server stopped.", "sets", store.Len())
	case err := <-serverErrSignal:
		if err == nil {
			err = errors.New("server exited")
		}
		return fmt.Errorf("redis server stopped unexpectedly: %w", err)
	}

	return nil // Exited with no errors.
}
