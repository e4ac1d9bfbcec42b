package svm

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/dualexec/executor/pkg/chains"
)

// SlotReader reads the current slot. Satisfied by *rpc.Client.
type SlotReader interface {
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// ClusterStatus reports the Solana connection for the status endpoint
type ClusterStatus struct {
	rpc        SlotReader
	rpcURL     string
	signer     solana.PublicKey
	commitment rpc.CommitmentType
	useRelay   bool
}

func NewClusterStatus(client SlotReader, rpcURL string, signer solana.PublicKey, commitment rpc.CommitmentType, useRelay bool) *ClusterStatus {
	return &ClusterStatus{
		rpc:        client,
		rpcURL:     rpcURL,
		signer:     signer,
		commitment: commitment,
		useRelay:   useRelay,
	}
}

func (s *ClusterStatus) Chain() string { return chains.Solana }

func (s *ClusterStatus) Connected() bool { return s.rpc != nil }

func (s *ClusterStatus) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"rpc_url":    s.rpcURL,
		"signer":     s.signer.String(),
		"commitment": string(s.commitment),
		"use_relay":  s.useRelay,
		"connected":  s.Connected(),
	}
	if s.rpc != nil {
		if slot, err := s.rpc.GetSlot(ctx, s.commitment); err == nil {
			status["slot"] = slot
		} else {
			status["error"] = err.Error()
		}
	}
	return status
}
