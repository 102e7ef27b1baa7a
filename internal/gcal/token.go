package gcal

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// persistingTokenSource wraps an oauth2.TokenSource and writes refreshed
// tokens back to the credential store so the next request starts from the
// fresh access token.
type persistingTokenSource struct {
	source       oauth2.TokenSource
	sink         TokenSink
	credentialID int64
	lastToken    *oauth2.Token
	logger       *zap.Logger
}

// Token implements oauth2.TokenSource and saves the token if it was
// refreshed. A failed write-back does not fail the provider call.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		return nil, err
	}

	if p.lastToken == nil || p.lastToken.AccessToken != token.AccessToken {
		if err := p.sink.SaveTokens(context.Background(), p.credentialID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
			p.logger.Error("failed to persist refreshed token",
				zap.Int64("credential", p.credentialID),
				zap.Error(err))
		}
		p.lastToken = token
	}

	return token, nil
}
