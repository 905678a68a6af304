// Package main is the PopCoin terminal client: it signs the player in,
// runs the game engine and exposes the game through an interactive
// shell.
package main

import (
	"bufio"
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/popcoin-idle/popcoin/internal/client/api"
	"github.com/popcoin-idle/popcoin/internal/client/engine"
	"github.com/popcoin-idle/popcoin/internal/client/identity"
	"github.com/popcoin-idle/popcoin/internal/client/session"
	"github.com/popcoin-idle/popcoin/internal/game"
	"github.com/popcoin-idle/popcoin/internal/models"
)

var (
	version   string
	buildDate string
)

// termView renders engine pushes to the terminal. Tick updates are
// kept silent; only events the player should notice are printed.
type termView struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	state   models.GameState
}

func (v *termView) UpdateState(state models.GameState) {
	v.mu.Lock()
	v.state = state
	v.mu.Unlock()
}

func (v *termView) NotifyAchievement(id, description string) {
	fmt.Printf("\nAchievement unlocked: %s\n", description)
}

func (v *termView) ShowMessage(msg string) {
	fmt.Println(msg)
}

func (v *termView) ConfirmPrestige(bonus int) bool {
	fmt.Printf("Prestige resets coins and upgrades for a permanent +%d per click. Continue? [y/N] ", bonus)
	if !v.scanner.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v.scanner.Text()), "y")
}

func (v *termView) current() models.GameState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// repl runs the interactive shell loop, accepting game commands until
// exit or EOF.
func repl(ctx context.Context, e *engine.Engine, client *api.Client, ctrl *session.Controller, view *termView) {
	for {
		fmt.Print("popcoin> ")
		if !view.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(view.scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, click, stats, shop, buy <kind>, prestige, achievements, top, logout, exit")
		case "click":
			earned := e.RegisterClick(ctx)
			s := view.current()
			fmt.Printf("+%.0f (coins: %.1f)\n", earned, s.Coins)
		case "stats":
			s := view.current()
			fmt.Printf("Coins: %.1f\nLifetime: %.1f\nPer click: %d\nPer second: %.1f\nClicks: %d\nPrestige: level %d (+%d per click)\n",
				s.Coins, s.TotalCoins, s.CoinsPerClick, s.CoinsPerSecond, s.ClickCount, s.PrestigeLevel, s.PrestigeBonus)
		case "shop":
			upgrades, err := client.Upgrades(ctx)
			if err != nil {
				fmt.Println("Failed to load the shop:", err)
				continue
			}
			for _, u := range upgrades {
				marker := " "
				if u.CanAfford {
					marker = "*"
				}
				fmt.Printf("%s %-14s level %-3d next: %.0f coins  (%s)\n", marker, u.Kind, u.CurrentLevel, u.Cost, u.Description)
			}
		case "buy":
			if len(args) < 2 {
				fmt.Println("Usage: buy <click_power|auto_clickers|click_bots>")
				continue
			}
			cost, err := e.PurchaseUpgrade(ctx, models.UpgradeKind(args[1]))
			switch {
			case err == nil:
				fmt.Printf("Bought %s for %.0f coins\n", args[1], cost)
			case err == game.ErrInsufficientCoins:
				fmt.Println("Not enough coins")
			case err == game.ErrUnknownUpgrade:
				fmt.Println("Unknown upgrade:", args[1])
			default:
				fmt.Println("Purchase failed:", err)
			}
		case "prestige":
			if err := e.Prestige(ctx); err != nil {
				if err == game.ErrInsufficientCoins {
					fmt.Printf("Prestige unlocks at %.0f lifetime coins\n", float64(game.PrestigeThreshold))
				} else {
					fmt.Println("Prestige failed:", err)
				}
			}
		case "achievements":
			s := view.current()
			if len(s.Achievements) == 0 {
				fmt.Println("Nothing unlocked yet")
				continue
			}
			for _, id := range s.Achievements {
				fmt.Println("-", game.Describe(id))
			}
		case "top":
			entries, err := client.Leaderboard(ctx, 10)
			if err != nil {
				fmt.Println("Failed to load the leaderboard:", err)
				continue
			}
			for i, entry := range entries {
				fmt.Printf("%2d. %-20s %.0f coins (prestige %d)\n", i+1, entry.Name, entry.TotalCoins, entry.PrestigeLevel)
			}
		case "logout":
			e.Stop(ctx)
			ctrl.SignOut(ctx)
			fmt.Println("Signed out")
			return
		case "exit", "quit":
			e.Stop(ctx)
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list.")
		}

		// The backend may have invalidated the session mid-loop.
		if !ctrl.Current().IsAuthenticated {
			fmt.Println("Session expired, please sign in again")
			return
		}
	}
	e.Stop(ctx)
}

func main() {
	serverURL := flag.String("s", "http://localhost:8080", "backend server URL")
	dataDir := flag.String("data", defaultDataDir(), "directory for cached credentials")
	flag.Parse()

	fmt.Printf("PopCoin %s (%s)\n", cmp.Or(version, "dev"), cmp.Or(buildDate, "N/A"))

	if err := os.MkdirAll(*dataDir, 0o700); err != nil {
		log.Fatalf("cannot create data dir: %v", err)
	}

	client, err := api.New(*serverURL)
	if err != nil {
		log.Fatalf("bad server URL: %v", err)
	}

	provider := identity.NewPromptProvider(filepath.Join(*dataDir, "token"))
	cache := &session.ProfileCache{Path: filepath.Join(*dataDir, "profile.json")}

	ctrl := session.NewController(session.Config{
		Backend:  client,
		Provider: provider,
		Cache:    cache,
	})

	ctx := context.Background()

	// Recover an existing session before anything renders.
	ctrl.CheckServerSession(ctx)
	<-ctrl.Ready()

	if user := ctrl.CachedProfile(); user != nil && !ctrl.Current().IsAuthenticated {
		fmt.Printf("Welcome back, %s. Signing in...\n", user.Name)
	}

	if !ctrl.Current().IsAuthenticated {
		if err := ctrl.SignInInteractive(ctx); err != nil {
			log.Fatalf("sign-in failed: %v", err)
		}
		if !ctrl.Current().IsAuthenticated {
			fmt.Println("Sign-in cancelled")
			return
		}
	}

	snap := ctrl.Current()
	fmt.Printf("Signed in as %s\n", snap.User.Name)

	view := &termView{scanner: bufio.NewScanner(os.Stdin)}
	e := engine.New(engine.Config{
		Backend: client,
		Session: ctrl,
		View:    view,
	})
	if err := e.Start(ctx); err != nil {
		log.Fatalf("cannot start game: %v", err)
	}

	// Ctrl-C flushes progress the same way exit does.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nSaving and exiting...")
		e.Stop(ctx)
		os.Exit(0)
	}()

	repl(ctx, e, client, ctrl, view)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".popcoin"
	}
	return filepath.Join(home, ".popcoin")
}
