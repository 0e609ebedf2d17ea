package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/abroadportal/internal/client/client"
	"github.com/dmitrijs2005/abroadportal/internal/client/config"
)

type App struct {
	config *config.Config
	api    client.Client
	reader *bufio.Reader
	out    io.Writer
	user   map[string]any
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	if c.AccessToken != "" {
		apiClient.SetAccessToken(c.AccessToken)
	}

	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.api.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	log.Println("Welcome to portalctl (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.api.HasAccessToken()
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	if a.user == nil {
		return "(token)"
	}
	email, _ := a.user["email"].(string)
	role, _ := a.user["role"].(string)
	return fmt.Sprintf("(%s %s)", email, role)
}
