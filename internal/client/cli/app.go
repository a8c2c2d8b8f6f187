package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/demoauth/internal/client/client"
	"github.com/dmitrijs2005/demoauth/internal/client/config"
	pb "github.com/dmitrijs2005/demoauth/internal/proto"
)

// SessionClient is the part of client.GRPCClient the CLI uses.
type SessionClient interface {
	Login(ctx context.Context, email, password string) error
	Refresh(ctx context.Context) error
	WhoAmI(ctx context.Context) (*pb.WhoAmIResponse, error)
	Logout(ctx context.Context) error
	IsLoggedIn() bool
	Close() error
}

type App struct {
	config   *config.Config
	client   SessionClient
	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return &App{config: c, client: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.client.Close(); err != nil {
			log.Printf("error closing connection: %s", err.Error())
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.client.IsLoggedIn()
}
