package vault

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"dytallix.io/pqcwallet/keystore"
)

// Client is a remote keystore store. It satisfies the same method surface and
// error contract as keystore.Store, so wallet tooling can point at either.
type Client struct {
	cc     *grpc.ClientConn
	client VaultClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout bounds each RPC when non-zero, including the first one,
	// which triggers the actual connect.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial creates a client for a vault server. The connection is established
// lazily on the first RPC.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewVaultClient(cc), Timeout: opts.Timeout}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Put uploads a keystore. With overwrite, an existing entry for the same
// address is deleted first; the two RPCs are not atomic, concurrent writers
// must coordinate elsewhere.
func (c *Client) Put(k *keystore.Keystore, overwrite bool) error {
	b, err := k.Marshal()
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	if overwrite {
		if err := c.deleteAddr(ctx, k.Address); err != nil && !errors.Is(err, keystore.ErrNotFound) {
			return err
		}
	}
	if _, err := c.client.Put(ctx, wrapperspb.Bytes(b)); err != nil {
		return mapRPC(err)
	}
	return nil
}

// Get downloads and structurally validates the keystore for addr.
func (c *Client) Get(addr string) (*keystore.Keystore, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(addr))
	if err != nil {
		return nil, mapRPC(err)
	}
	k, err := keystore.Unmarshal(reply.GetValue())
	if err != nil {
		return nil, err
	}
	if k.Address != addr {
		return nil, keystore.ErrIntegrity
	}
	return k, nil
}

// Has reports whether the vault holds a keystore for addr.
func (c *Client) Has(addr string) (bool, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(addr))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

// Delete removes the keystore for addr.
func (c *Client) Delete(addr string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.deleteAddr(ctx, addr)
}

func (c *Client) deleteAddr(ctx context.Context, addr string) error {
	if _, err := c.client.Delete(ctx, wrapperspb.String(addr)); err != nil {
		return mapRPC(err)
	}
	return nil
}

// List returns the stored addresses, sorted by the server.
func (c *Client) List() ([]string, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.List(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapRPC(err)
	}
	values := reply.GetValues()
	addrs := make([]string, 0, len(values))
	for _, v := range values {
		addrs = append(addrs, v.GetStringValue())
	}
	return addrs, nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
