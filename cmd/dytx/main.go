package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"dytallix.io/pqcwallet/archive/localfs"
	"dytallix.io/pqcwallet/keystore"
	"dytallix.io/pqcwallet/pqc"
	"dytallix.io/pqcwallet/rpc"
	"dytallix.io/pqcwallet/tx"
	"dytallix.io/pqcwallet/vault"
	"dytallix.io/pqcwallet/wallet"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "tx":
		return cmdTx(args[1:], out, errOut)
	case "account":
		return cmdAccount(args[1:], out, errOut)
	case "vault":
		return cmdVault(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "dytx: Dytallix PQC wallet CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dytx key new [--algorithm <name>] [--dir <path>] --password <pw>")
	fmt.Fprintln(w, "  dytx key list [--dir <path>]")
	fmt.Fprintln(w, "  dytx key export --address <addr> [--dir <path>]")
	fmt.Fprintln(w, "  dytx key import [--dir <path>] [--force] <keystore.json>")
	fmt.Fprintln(w, "  dytx sign --address <addr> --password <pw> [--dir <path>] <file>")
	fmt.Fprintln(w, "  dytx verify --address <addr> [--dir <path>] --sig <sig.b64> <file>")
	fmt.Fprintln(w, "  dytx tx sign --address <addr> --password <pw> --to <addr> --amount <n> [--denom DGT] --nonce <n> [--chain-id <id>] [--fee <n>] [--memo <text>] [--gas-limit <n>] [--gas-price <n>]")
	fmt.Fprintln(w, "  dytx tx submit --node <url> [--archive-dir <path>] <envelope.json>")
	fmt.Fprintln(w, "  dytx tx status --node <url> <0xhash>")
	fmt.Fprintln(w, "  dytx account --node <url> <address>")
	fmt.Fprintln(w, "  dytx vault put|get|list|delete --target <host:port> ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keystores live under ~/.dytallix/keystore/<address>.json (0600)")
	fmt.Fprintln(w, "  - algorithms: ML-DSA-44, ML-DSA-65 (default), ML-DSA-87")
	fmt.Fprintln(w, "  - tx sign prints the signed envelope JSON to stdout")
	fmt.Fprintln(w, "  - signatures are base64 on stdout and in --sig files")
}

func openStore(dir string, errOut io.Writer) (*keystore.Store, bool) {
	s, err := keystore.OpenStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "open keystore dir: %v\n", err)
		return nil, false
	}
	return s, true
}

func openWallet(store *keystore.Store, addr, password string, errOut io.Writer) (*wallet.Wallet, bool) {
	k, err := store.Get(addr)
	if err != nil {
		fmt.Fprintf(errOut, "load keystore: %v\n", err)
		return nil, false
	}
	w, err := wallet.FromKeystore(k, password)
	if err != nil {
		fmt.Fprintf(errOut, "open wallet: %v\n", err)
		return nil, false
	}
	return w, true
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: dytx key <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: new, list, export, import")
		return 2
	}
	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("key new", flag.ContinueOnError)
		fs.SetOutput(errOut)
		algorithm := fs.String("algorithm", pqc.DefaultAlgorithm, "Signing algorithm")
		dir := fs.String("dir", "", "Keystore directory (default ~/.dytallix/keystore)")
		password := fs.String("password", "", "Keystore password")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *password == "" {
			fmt.Fprintln(errOut, "key new: --password is required")
			return 2
		}
		store, ok := openStore(*dir, errOut)
		if !ok {
			return 1
		}
		w, err := wallet.Generate(*algorithm)
		if err != nil {
			fmt.Fprintf(errOut, "generate: %v\n", err)
			return 1
		}
		defer w.Zero()
		k, err := w.ExportKeystore(*password, keystore.DefaultKDFParams())
		if err != nil {
			fmt.Fprintf(errOut, "seal keystore: %v\n", err)
			return 1
		}
		if err := store.Put(k, false); err != nil {
			fmt.Fprintf(errOut, "save keystore: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, w.Address())
		return 0
	case "list":
		fs := flag.NewFlagSet("key list", flag.ContinueOnError)
		fs.SetOutput(errOut)
		dir := fs.String("dir", "", "Keystore directory")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		store, ok := openStore(*dir, errOut)
		if !ok {
			return 1
		}
		addrs, err := store.List()
		if err != nil {
			fmt.Fprintf(errOut, "list: %v\n", err)
			return 1
		}
		for _, a := range addrs {
			_, _ = fmt.Fprintln(out, a)
		}
		return 0
	case "export":
		fs := flag.NewFlagSet("key export", flag.ContinueOnError)
		fs.SetOutput(errOut)
		addr := fs.String("address", "", "Wallet address")
		dir := fs.String("dir", "", "Keystore directory")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *addr == "" {
			fmt.Fprintln(errOut, "key export: --address is required")
			return 2
		}
		store, ok := openStore(*dir, errOut)
		if !ok {
			return 1
		}
		k, err := store.Get(*addr)
		if err != nil {
			fmt.Fprintf(errOut, "load keystore: %v\n", err)
			return 1
		}
		b, err := k.Marshal()
		if err != nil {
			fmt.Fprintf(errOut, "encode keystore: %v\n", err)
			return 1
		}
		_, _ = out.Write(b)
		_, _ = fmt.Fprintln(out)
		return 0
	case "import":
		fs := flag.NewFlagSet("key import", flag.ContinueOnError)
		fs.SetOutput(errOut)
		dir := fs.String("dir", "", "Keystore directory")
		force := fs.Bool("force", false, "Overwrite an existing keystore for the same address")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: dytx key import [--dir <path>] [--force] <keystore.json>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read keystore: %v\n", err)
			return 1
		}
		k, err := keystore.Unmarshal(b)
		if err != nil {
			fmt.Fprintf(errOut, "parse keystore: %v\n", err)
			return 1
		}
		store, ok := openStore(*dir, errOut)
		if !ok {
			return 1
		}
		if err := store.Put(k, *force); err != nil {
			fmt.Fprintf(errOut, "save keystore: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, k.Address)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("address", "", "Wallet address")
	password := fs.String("password", "", "Keystore password")
	dir := fs.String("dir", "", "Keystore directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *addr == "" || *password == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dytx sign --address <addr> --password <pw> [--dir <path>] <file>")
		return 2
	}
	msg, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read message: %v\n", err)
		return 1
	}
	store, ok := openStore(*dir, errOut)
	if !ok {
		return 1
	}
	w, ok := openWallet(store, *addr, *password, errOut)
	if !ok {
		return 1
	}
	defer w.Zero()
	sig, err := w.Sign(msg)
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, base64.StdEncoding.EncodeToString(sig))
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("address", "", "Wallet address")
	dir := fs.String("dir", "", "Keystore directory")
	sigPath := fs.String("sig", "", "Base64 signature file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *addr == "" || *sigPath == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dytx verify --address <addr> [--dir <path>] --sig <sig.b64> <file>")
		return 2
	}
	msg, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read message: %v\n", err)
		return 1
	}
	sigB64, err := os.ReadFile(*sigPath)
	if err != nil {
		fmt.Fprintf(errOut, "read signature: %v\n", err)
		return 1
	}
	sig, err := base64.StdEncoding.DecodeString(trimEOL(string(sigB64)))
	if err != nil {
		fmt.Fprintf(errOut, "decode signature: %v\n", err)
		return 1
	}

	// Verification needs only the plaintext half of the keystore.
	store, ok := openStore(*dir, errOut)
	if !ok {
		return 1
	}
	k, err := store.Get(*addr)
	if err != nil {
		fmt.Fprintf(errOut, "load keystore: %v\n", err)
		return 1
	}
	scheme, err := pqc.ByName(k.Algorithm)
	if err != nil {
		fmt.Fprintf(errOut, "keystore: %v\n", err)
		return 1
	}
	pub, err := k.PublicKeyBytes()
	if err != nil {
		fmt.Fprintf(errOut, "keystore: %v\n", err)
		return 1
	}
	if !scheme.Verify(pub, msg, sig) {
		fmt.Fprintln(errOut, "INVALID")
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdTx(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: dytx tx <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: sign, submit, status")
		return 2
	}
	switch args[0] {
	case "sign":
		return cmdTxSign(args[1:], out, errOut)
	case "submit":
		return cmdTxSubmit(args[1:], out, errOut)
	case "status":
		return cmdTxStatus(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown tx subcommand: %s\n", args[0])
		return 2
	}
}

func cmdTxSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("tx sign", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("address", "", "Sender address")
	password := fs.String("password", "", "Keystore password")
	dir := fs.String("dir", "", "Keystore directory")
	to := fs.String("to", "", "Recipient address")
	amount := fs.Uint64("amount", 0, "Amount in base units")
	denom := fs.String("denom", tx.DenomDGT, "Denomination")
	nonce := fs.Uint64("nonce", 0, "Account nonce")
	chainID := fs.String("chain-id", "dyt-local-1", "Chain identifier")
	fee := fs.Uint64("fee", 1000, "Fee in base units")
	memo := fs.String("memo", "", "Memo text")
	gasLimit := fs.Uint64("gas-limit", 21000, "Gas limit")
	gasPrice := fs.Uint64("gas-price", 1000, "Gas price")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *addr == "" || *password == "" || *to == "" || *amount == 0 {
		fmt.Fprintln(errOut, "tx sign: --address, --password, --to and --amount are required")
		return 2
	}

	store, ok := openStore(*dir, errOut)
	if !ok {
		return 1
	}
	w, ok := openWallet(store, *addr, *password, errOut)
	if !ok {
		return 1
	}
	defer w.Zero()

	t, err := tx.New(*chainID, *nonce,
		[]tx.Msg{tx.Send(w.Address(), *to, *denom, tx.Amount(*amount))},
		tx.Amount(*fee), *memo)
	if err != nil {
		fmt.Fprintf(errOut, "build transaction: %v\n", err)
		return 1
	}
	env, err := w.SignTx(t, *gasLimit, *gasPrice)
	if err != nil {
		fmt.Fprintf(errOut, "sign transaction: %v\n", err)
		return 1
	}
	b, err := env.MarshalIndent()
	if err != nil {
		fmt.Fprintf(errOut, "encode envelope: %v\n", err)
		return 1
	}
	_, _ = out.Write(b)
	_, _ = fmt.Fprintln(out)
	return 0
}

func cmdTxSubmit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("tx submit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	node := fs.String("node", "", "Node base URL")
	archiveDir := fs.String("archive-dir", "", "Archive accepted envelopes under this directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *node == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dytx tx submit --node <url> [--archive-dir <path>] <envelope.json>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read envelope: %v\n", err)
		return 1
	}
	env, err := tx.UnmarshalSigned(b)
	if err != nil {
		fmt.Fprintf(errOut, "parse envelope: %v\n", err)
		return 1
	}

	opts := rpc.Options{}
	if *archiveDir != "" {
		store, serr := localfs.New(*archiveDir)
		if serr != nil {
			fmt.Fprintf(errOut, "open archive: %v\n", serr)
			return 1
		}
		opts.Archive = store
	}
	client, err := rpc.New(*node, opts)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}
	res, err := client.SubmitTx(context.Background(), env)
	if err != nil {
		fmt.Fprintf(errOut, "submit: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "%s\t%s\n", res.Hash, res.Status)
	return 0
}

func cmdTxStatus(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("tx status", flag.ContinueOnError)
	fs.SetOutput(errOut)
	node := fs.String("node", "", "Node base URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *node == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dytx tx status --node <url> <0xhash>")
		return 2
	}
	client, err := rpc.New(*node, rpc.Options{})
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}
	st, err := client.TxStatus(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "status: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "%s\t%s\tblock=%d\tgas_used=%d\n", st.Hash, st.Status, st.Block, st.GasUsed)
	return 0
}

func cmdAccount(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(errOut)
	node := fs.String("node", "", "Node base URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *node == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dytx account --node <url> <address>")
		return 2
	}
	client, err := rpc.New(*node, rpc.Options{})
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}
	acct, err := client.Account(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "account: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "address\t%s\n", acct.Address)
	_, _ = fmt.Fprintf(out, "nonce\t%d\n", acct.Nonce)
	for denom, amt := range acct.Balances {
		_, _ = fmt.Fprintf(out, "balance\t%s\t%s\n", denom, amt)
	}
	return 0
}

func cmdVault(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: dytx vault <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put, get, list, delete")
		return 2
	}
	sub := args[0]
	fs := flag.NewFlagSet("vault "+sub, flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("target", "127.0.0.1:7878", "Vault server address")
	addr := fs.String("address", "", "Wallet address (get/delete)")
	force := fs.Bool("force", false, "Overwrite an existing vault entry (put)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	client, err := vault.Dial(*target, vault.DialOptions{Timeout: 10 * time.Second})
	if err != nil {
		fmt.Fprintf(errOut, "dial vault: %v\n", err)
		return 1
	}
	defer client.Close()

	switch sub {
	case "put":
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: dytx vault put --target <host:port> [--force] <keystore.json>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read keystore: %v\n", err)
			return 1
		}
		k, err := keystore.Unmarshal(b)
		if err != nil {
			fmt.Fprintf(errOut, "parse keystore: %v\n", err)
			return 1
		}
		if err := client.Put(k, *force); err != nil {
			fmt.Fprintf(errOut, "vault put: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, k.Address)
		return 0
	case "get":
		if *addr == "" {
			fmt.Fprintln(errOut, "vault get: --address is required")
			return 2
		}
		k, err := client.Get(*addr)
		if err != nil {
			fmt.Fprintf(errOut, "vault get: %v\n", err)
			return 1
		}
		b, err := k.Marshal()
		if err != nil {
			fmt.Fprintf(errOut, "encode keystore: %v\n", err)
			return 1
		}
		_, _ = out.Write(b)
		_, _ = fmt.Fprintln(out)
		return 0
	case "list":
		addrs, err := client.List()
		if err != nil {
			fmt.Fprintf(errOut, "vault list: %v\n", err)
			return 1
		}
		for _, a := range addrs {
			_, _ = fmt.Fprintln(out, a)
		}
		return 0
	case "delete":
		if *addr == "" {
			fmt.Fprintln(errOut, "vault delete: --address is required")
			return 2
		}
		if err := client.Delete(*addr); err != nil {
			fmt.Fprintf(errOut, "vault delete: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, "OK")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown vault subcommand: %s\n", sub)
		return 2
	}
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
