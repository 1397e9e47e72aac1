package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/expressions"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/transfers"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/wallets"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Wallets(db dbx.DBTX) wallets.Repository
	Expressions(db dbx.DBTX) expressions.Repository
	Transfers(db dbx.DBTX) transfers.Repository
	Nonces(db dbx.DBTX) nonces.Repository
}
