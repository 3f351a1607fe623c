// Package fundme provides a time-boxed crowdfunding ledger with an optional
// price-feed gate, modeled on the FundMe contract.
//
// A campaign is deployed with an owner and a contribution window. While the
// window is open anyone may contribute; each contribution is credited to the
// contributor's balance and announced with a Contribution event. Once the
// window has closed the owner, and only the owner, may sweep the held funds,
// which emits FundsSwept.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/fundme"
//	    "github.com/xraph/fundme/campaign"
//	    "github.com/xraph/fundme/store/memory"
//	)
//
//	e := fundme.New(memory.New())
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
//	l, err := e.Deploy(ctx, campaign.Params{
//	    Owner:  owner,
//	    Window: 180 * time.Second,
//	})
//
//	_, err = l.Contribute(ctx, alice, fundme.MustEther("0.5"))
//	// after the window:
//	_, err = l.Sweep(ctx, owner)
//
// # Window
//
// The window is open while now < DeploymentTimestamp + Window. The state is
// derived from the engine clock on every call and is never cached, so a
// campaign never reopens. Inject a clockwork.FakeClock with WithClock to
// drive windows in tests.
//
// # Minimum contribution
//
// A campaign may require each contribution to be worth at least MinimumUSD.
// The check converts wei to USD through the configured oracle.PriceOracle.
// If the oracle cannot answer the contribution fails with
// ErrOracleUnavailable; the ledger never guesses a price. Development
// networks use oracle.Mock (8 decimals, 3000 USD/ETH); public networks use
// the chainlink subpackage.
//
// # Balances
//
// BalanceOf is the cumulative amount an address contributed and is kept as a
// historical record after a sweep. HeldBalance is what the campaign still
// holds and drops to zero after each sweep; a second sweep transfers zero.
//
// # Integration
//
// Stores are available for memory, PostgreSQL, SQLite and MongoDB. Plugins
// receive lifecycle hooks (see the plugin package); audit_hook,
// observability and publisher ship ready-made plugins, api exposes an
// HTTP surface and extension registers the engine with Forge.
package fundme
