package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/shortcode"
)

// maxSaveAttempts bounds how often a short code is regenerated when the insert
// loses a race against a concurrent creator of the same code.
const maxSaveAttempts = 3

type urlRepository interface {
	Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	Exists(ctx context.Context, shortCode string) (bool, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error)
	Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	Remove(ctx context.Context, shortCode string) error
}

type URLUseCase struct {
	urlRepo  urlRepository
	resolver *shortcode.Resolver
}

func NewURLUseCase(urlRepo urlRepository, resolver *shortcode.Resolver) *URLUseCase {
	return &URLUseCase{
		urlRepo:  urlRepo,
		resolver: resolver,
	}
}

// ShortenURL stores originalURL under a newly generated short code.
//
// The existence check only narrows the window for collisions; the unique index is
// authoritative. When the insert still reports entity.ErrShortCodeExists a new code is
// resolved, up to maxSaveAttempts times, after which the conflict is returned to the caller.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	for i := 0; i < maxSaveAttempts; i++ {
		shortCode, err := uc.resolver.Resolve(ctx, uc.urlRepo.Exists)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := uc.urlRepo.Save(ctx, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
}

func (uc *URLUseCase) GetURL(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURL"

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

// ResolveShortCode returns the URL to redirect to and counts the access.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.urlRepo.RetrieveAndUpdateStats(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ModifyURL"

	url, err := uc.urlRepo.Update(ctx, shortCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify url: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) DeactivateURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeactivateURL"

	err := uc.urlRepo.Remove(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	return nil
}
