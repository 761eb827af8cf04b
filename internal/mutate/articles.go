package mutate

import (
	"context"
	"io"
	"log"

	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

type PostArticleInput struct {
	Description string
	VideoURL    string

	// Image, when non-nil, is uploaded to the blob store before the article
	// document is written.
	Image     io.Reader
	ImageName string
	ImageSize int64
}

// PostArticle validates and publishes a new article. A post with no image,
// video, or description is rejected before anything reaches the store.
func (p *Pipeline) PostArticle(ctx context.Context, who domain.Identity, in PostArticleInput) (domain.Article, error) {
	if in.Image == nil && in.VideoURL == "" && in.Description == "" {
		return domain.Article{}, domain.ErrInvalidArticle
	}

	imageURL := ""
	if in.Image != nil {
		path := "images/" + in.ImageName
		url, err := p.blobs.Put(ctx, path, in.Image, in.ImageSize, uploadProgress(path))
		if err != nil {
			log.Printf("post article: %v", err)
			return domain.Article{}, classify(err)
		}
		imageURL = url
	}

	article := domain.Article{
		Actor: domain.Actor{
			Email:       who.Email,
			DisplayName: who.DisplayName,
			PostedAt:    p.now(),
			AvatarURL:   who.AvatarURL,
		},
		VideoURL:    in.VideoURL,
		ImageURL:    imageURL,
		Description: in.Description,
		Comments:    []domain.Comment{},
		Likes:       domain.LikeSet{Count: 0, Users: []string{}},
	}

	id, err := p.store.Add(ctx, domain.CollectionArticles, article.DocData())
	if err != nil {
		log.Printf("post article: %v", err)
		return domain.Article{}, classify(err)
	}
	article.ID = id
	p.apply(articleAdded{article: article})
	return article, nil
}

// FetchArticle reads the article document directly, bypassing the cache.
// Ownership checks use it when the cache has not yet seen the document.
func (p *Pipeline) FetchArticle(ctx context.Context, id string) (domain.Article, error) {
	doc, err := p.store.Get(ctx, domain.CollectionArticles, id)
	if err != nil {
		return domain.Article{}, err
	}
	return domain.ArticleFromDoc(doc.ID, doc.Data), nil
}

func (p *Pipeline) DeleteArticle(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, domain.CollectionArticles, id); err != nil {
		log.Printf("delete article %s: %v", id, err)
		return classify(err)
	}
	p.apply(articleRemoved{id: id})
	return nil
}

// Like records that email liked the article. Re-liking is a no-op: the
// pre-read keeps the operation idempotent, and the write itself uses the
// store's atomic union and increment so concurrent likers cannot clobber each
// other.
func (p *Pipeline) Like(ctx context.Context, articleID, email string) error {
	doc, err := p.store.Get(ctx, domain.CollectionArticles, articleID)
	if err != nil {
		log.Printf("like article %s: %v", articleID, err)
		return err
	}

	article := domain.ArticleFromDoc(doc.ID, doc.Data)
	if article.Likes.Contains(email) {
		return nil
	}

	err = p.store.Update(ctx, domain.CollectionArticles, articleID, []store.Update{
		{Path: "likes.users", Value: store.Union{Values: []any{email}}},
		{Path: "likes.count", Value: store.Increment{N: 1}},
	})
	if err != nil {
		log.Printf("like article %s: %v", articleID, err)
		return classify(err)
	}
	p.apply(articleLiked{id: articleID, email: email})
	return nil
}

// AddComment appends a comment, replacing any existing comment with identical
// text (see replaceComment). The author's cached profile name wins over the
// identity's display name when present; a missing profile aborts the
// operation.
func (p *Pipeline) AddComment(ctx context.Context, articleID string, who domain.Identity, text string) error {
	profile, err := p.FetchUser(ctx, who.Email)
	if err != nil {
		log.Printf("comment on article %s: author %s: %v", articleID, who.Email, err)
		return err
	}
	name := profile.Username
	if name == "" {
		name = who.Email
	}
	avatar := profile.ProfilePicture
	if avatar == "" {
		avatar = who.AvatarURL
	}
	comment := domain.Comment{
		AuthorEmail: who.Email,
		AuthorName:  name,
		Text:        text,
		AvatarURL:   avatar,
	}

	doc, err := p.store.Get(ctx, domain.CollectionArticles, articleID)
	if err != nil {
		log.Printf("comment on article %s: %v", articleID, err)
		return err
	}
	article := domain.ArticleFromDoc(doc.ID, doc.Data)
	comments := replaceComment(article.Comments, comment)

	encoded := make([]any, 0, len(comments))
	for _, c := range comments {
		encoded = append(encoded, c.DocData())
	}
	err = p.store.Update(ctx, domain.CollectionArticles, articleID, []store.Update{
		{Path: "comments", Value: encoded},
	})
	if err != nil {
		log.Printf("comment on article %s: %v", articleID, err)
		return classify(err)
	}
	p.apply(commentAdded{id: articleID, comment: comment})
	return nil
}

// uploadProgress logs when a blob upload completes.
func uploadProgress(path string) func(written, total int64) {
	return func(written, total int64) {
		if total <= 0 {
			return
		}
		pct := written * 100 / total
		if pct == 100 || written == total {
			log.Printf("upload %s: %d%%", path, pct)
		}
	}
}
