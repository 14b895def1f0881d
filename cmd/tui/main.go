package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HydroBlockchain/keresverse-market/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)
	out := os.Stdout

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Fprintln(out, "\n=== Marketplace Flow Control ===")
		fmt.Fprintln(out, "1) Show configuration summary")
		fmt.Fprintln(out, "2) Edit sale order")
		fmt.Fprintln(out, "3) Edit node and deploy settings")
		fmt.Fprintln(out, "4) Save config")
		fmt.Fprintln(out, "5) Launch marketplace flow")
		fmt.Fprintln(out, "6) Reload config from disk")
		fmt.Fprintln(out, "0) Exit")
		fmt.Fprint(out, "Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(out, cfg)
		case "2":
			editOrder(reader, out, cfg)
		case "3":
			editChain(reader, out, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Fprintln(out, "config saved")
			}
		case "5":
			launchFlow(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Fprintln(out, "config reloaded")
			}
		case "0":
			return
		default:
			fmt.Fprintln(out, "unknown option")
		}
	}
}

func printSummary(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "\n--- Configuration Summary ---")
	fmt.Fprintf(out, "Node: %s (chain id %d, 0 = ask node)\n", cfg.Chain.RPCURL, cfg.Chain.ChainID)
	fmt.Fprintf(out, "Artifacts: %s (%s, %s)\n", cfg.Artifacts.Dir, cfg.Artifacts.TokenContract, cfg.Artifacts.MarketplaceContract)
	fmt.Fprintf(out, "Token URI: %q\n", cfg.Deploy.TokenURI)
	fmt.Fprintf(out, "Marketplace argument: %s\n", cfg.Deploy.MarketplaceArg)
	fmt.Fprintf(out, "Order #%d: token %d x%d, active=%t\n", cfg.Order.ID, cfg.Order.TokenID, cfg.Order.Quantity, cfg.Order.IsActive())
	fmt.Fprintf(out, "Price: %s | start %d | duration %d\n", cfg.Order.Price, cfg.Order.StartTime, cfg.Order.Duration)
	if cfg.Risk.MaxValue != "" {
		fmt.Fprintf(out, "Spend cap: %s\n", cfg.Risk.MaxValue)
	}
	fmt.Fprintf(out, "Keys from $%s (owner) and $%s (buyer)\n", cfg.Wallet.OwnerKeyEnv, cfg.Wallet.BuyerKeyEnv)
}

func editOrder(reader *bufio.Reader, out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "\n--- Edit Sale Order ---")
	cfg.Order.TokenID = promptUint(reader, out, "Token id", cfg.Order.TokenID)
	cfg.Order.Quantity = promptUint(reader, out, "Quantity", cfg.Order.Quantity)
	cfg.Order.Price = promptWei(reader, out, "Price (wei or e.g. '10 ether')", cfg.Order.Price)
	active := promptBool(reader, out, "Active", cfg.Order.IsActive())
	cfg.Order.Active = &active
	cfg.Order.StartTime = promptUint(reader, out, "Start time", cfg.Order.StartTime)
	cfg.Order.Duration = promptUint(reader, out, "Duration", cfg.Order.Duration)
}

func editChain(reader *bufio.Reader, out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "\n--- Edit Node / Deploy ---")
	cfg.Chain.RPCURL = promptString(reader, out, "RPC URL", cfg.Chain.RPCURL)
	cfg.Artifacts.Dir = promptString(reader, out, "Artifacts directory", cfg.Artifacts.Dir)
	cfg.Deploy.TokenURI = promptString(reader, out, "Token URI", cfg.Deploy.TokenURI)
	cfg.Deploy.MarketplaceArg = promptString(reader, out, "Marketplace argument", cfg.Deploy.MarketplaceArg)
}

func launchFlow(reader *bufio.Reader) {
	fmt.Println("Launching marketplace flow (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/marketflow", "run", "--config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start flow: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func readLine(reader *bufio.Reader, out io.Writer, label, current string) string {
	fmt.Fprintf(out, "%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptString(reader *bufio.Reader, out io.Writer, label, current string) string {
	if line := readLine(reader, out, label, current); line != "" {
		return line
	}
	return current
}

func promptUint(reader *bufio.Reader, out io.Writer, label string, current uint64) uint64 {
	line := readLine(reader, out, label, strconv.FormatUint(current, 10))
	if line == "" {
		return current
	}
	val, err := strconv.ParseUint(line, 10, 64)
	if err != nil {
		fmt.Fprintf(out, "invalid number, keeping %d\n", current)
		return current
	}
	return val
}

func promptBool(reader *bufio.Reader, out io.Writer, label string, current bool) bool {
	line := readLine(reader, out, label, strconv.FormatBool(current))
	if line == "" {
		return current
	}
	val, err := strconv.ParseBool(line)
	if err != nil {
		fmt.Fprintf(out, "invalid flag, keeping %t\n", current)
		return current
	}
	return val
}

func promptWei(reader *bufio.Reader, out io.Writer, label, current string) string {
	line := readLine(reader, out, label, current)
	if line == "" {
		return current
	}
	if _, err := config.ParseWei(line); err != nil {
		fmt.Fprintf(out, "invalid amount (%v), keeping %s\n", err, current)
		return current
	}
	return line
}

// loadConfig reads the file without env overrides so saving never persists them.
func loadConfig() (*config.Config, error) {
	return config.LoadFile(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
