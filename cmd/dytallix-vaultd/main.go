package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"dytallix.io/pqcwallet/keystore"
	"dytallix.io/pqcwallet/vault"
)

func main() {
	fs := flag.NewFlagSet("dytallix-vaultd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7878", "listen address")
	dir := fs.String("dir", "", "keystore directory (default ~/.dytallix/keystore)")

	_ = fs.Parse(os.Args[1:])

	store, err := keystore.OpenStore(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	vault.RegisterVaultServer(s, &vault.Server{Store: store})

	fmt.Fprintf(os.Stderr, "dytallix-vaultd listening on %s (dir=%s)\n", lis.Addr().String(), store.Dir())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
