package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/capability/http/dto"
	capabilityUseCase "github.com/allisson/missionhub/internal/capability/usecase"
)

// RunGrantCapability grants capability to identity. A positive expiresIn bounds the grant.
func RunGrantCapability(
	ctx context.Context,
	authorizer capabilityUseCase.AuthorizerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	identity string,
	capability string,
	grantedBy string,
	expiresIn time.Duration,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if expiresIn < 0 {
		return fmt.Errorf("expires-in must not be negative, got: %s", expiresIn)
	}

	input := &capabilityDomain.GrantInput{
		Identity:   identity,
		Capability: capabilityDomain.Capability(capability),
		GrantedBy:  grantedBy,
	}
	if expiresIn > 0 {
		expiresAt := time.Now().UTC().Add(expiresIn)
		input.ExpiresAt = &expiresAt
	}

	grant, err := authorizer.Grant(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to grant capability: %w", err)
	}

	logger.Info("capability granted",
		slog.String("identity", grant.Identity),
		slog.String("capability", string(grant.Capability)),
	)

	if format == "json" {
		return writeJSON(writer, dto.MapGrantToResponse(grant, time.Now().UTC()))
	}

	_, err = fmt.Fprintf(writer, "Granted %s to %s%s\n", grant.Capability, grant.Identity, expirySuffix(grant.ExpiresAt))
	return err
}

// RunRevokeCapability removes a capability grant.
func RunRevokeCapability(
	ctx context.Context,
	authorizer capabilityUseCase.AuthorizerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	identity string,
	capability string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	identity = capabilityDomain.NormalizeIdentity(identity)
	if err := authorizer.Revoke(ctx, identity, capabilityDomain.Capability(capability)); err != nil {
		return fmt.Errorf("failed to revoke capability: %w", err)
	}

	logger.Info("capability revoked",
		slog.String("identity", identity),
		slog.String("capability", capability),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"identity":   identity,
			"capability": capability,
			"revoked":    true,
		})
	}

	_, err := fmt.Fprintf(writer, "Revoked %s from %s\n", capability, identity)
	return err
}

// RunListCapabilities prints every grant of identity, expired ones included.
func RunListCapabilities(
	ctx context.Context,
	authorizer capabilityUseCase.AuthorizerUseCase,
	writer io.Writer,
	identity string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	identity = capabilityDomain.NormalizeIdentity(identity)
	grants, err := authorizer.ListGrants(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to list capabilities: %w", err)
	}

	response := dto.MapGrantsToListResponse(identity, grants, time.Now().UTC())
	if format == "json" {
		return writeJSON(writer, response)
	}

	if len(response.Grants) == 0 {
		_, err := fmt.Fprintf(writer, "No capabilities granted to %s\n", identity)
		return err
	}

	for _, grant := range response.Grants {
		state := "effective"
		if !grant.Effective {
			state = "expired"
		}
		if _, err := fmt.Fprintf(writer, "%-32s %-9s granted by %s%s\n",
			grant.Capability, state, grant.GrantedBy, expirySuffix(grant.ExpiresAt)); err != nil {
			return err
		}
	}
	return nil
}

func expirySuffix(expiresAt *time.Time) string {
	if expiresAt == nil {
		return ""
	}
	return " (expires " + expiresAt.Format(time.RFC3339) + ")"
}
