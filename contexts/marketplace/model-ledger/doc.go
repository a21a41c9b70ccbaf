// Package modelledger contains the marketplace ledger: listings, purchases,
// buyer ratings, custody of sale proceeds and operator withdrawal.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package modelledger
