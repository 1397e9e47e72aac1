package services

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/ledger"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
)

// TransferService records transfers between principals.
type TransferService struct {
	ledger  *ledger.Ledger
	timeout storeTimeout
	logger  logging.Logger
}

func NewTransferService(l *ledger.Ledger, timeout time.Duration, logger logging.Logger) *TransferService {
	return &TransferService{ledger: l, timeout: storeTimeout(timeout), logger: logger.With("service", "transfer")}
}

func (s *TransferService) Transfer(ctx context.Context, ac *auth.Context, params map[string]any) (*TransferOutput, error) {
	to, err := publicKeyParam(params, "to")
	if err != nil {
		return nil, err
	}
	body, ok := params["payload"].(map[string]any)
	if !ok || body == nil {
		return nil, common.NewValidationError("payload is required and must be an object")
	}

	visibility := optionParam(params, "visibility", models.VisibilityMetadataOnly)
	if visibility != models.VisibilityPublic && visibility != models.VisibilityMetadataOnly {
		return nil, common.NewValidationError("visibility must be public or metadata_only")
	}

	hash, err := payloadHash(body)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.timeout.ctx(ctx)
	defer cancel()
	t, err := s.ledger.AppendTransfer(sctx, ledger.TransferInput{
		From:            ac.PublicKey,
		To:              to,
		Payload:         body,
		PayloadHash:     hash,
		Visibility:      visibility,
		SenderSignature: ac.Signature,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "transfer appended",
		"transfer_id", t.ID, "from", t.From, "to", t.To, "sender_log_index", t.SenderLogIndex)

	return &TransferOutput{
		TransferID:  t.ID,
		From:        t.From,
		To:          t.To,
		PayloadHash: t.PayloadHash,
		Visibility:  t.Visibility,
		Receipt: TransferReceipt{
			ServerSignature:   t.Receipt.Signature,
			ServerTimestamp:   t.Receipt.Timestamp,
			SenderLogIndex:    t.SenderLogIndex,
			RecipientLogIndex: t.RecipientLogIndex,
		},
		WitnessStatus: t.WitnessStatus,
	}, nil
}

func normalizeKey(pk string) string {
	return strings.ToLower(pk)
}
