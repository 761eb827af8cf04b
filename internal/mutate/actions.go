package mutate

import "github.com/campushub/backend/internal/domain"

// action is the closed set of cache reflections. Each mutation constructs
// exactly one variant on success and apply dispatches it exhaustively, so the
// cache effect of every mutation kind is visible in one place.
type action interface {
	isAction()
}

type articleAdded struct{ article domain.Article }
type articleRemoved struct{ id string }
type articleLiked struct{ id, email string }
type commentAdded struct {
	id      string
	comment domain.Comment
}
type eventAdded struct{ event domain.Event }
type eventUpdated struct{ event domain.Event }
type eventRemoved struct{ id string }
type projectAdded struct{ project domain.Project }
type projectUpdated struct {
	id, name, description string
}
type projectRemoved struct{ id string }
type roleAppended struct {
	id   string
	role domain.Role
}
type memberAppended struct{ id, member string }
type userLoaded struct{ user domain.UserProfile }

func (articleAdded) isAction()   {}
func (articleRemoved) isAction() {}
func (articleLiked) isAction()   {}
func (commentAdded) isAction()   {}
func (eventAdded) isAction()     {}
func (eventUpdated) isAction()   {}
func (eventRemoved) isAction()   {}
func (projectAdded) isAction()   {}
func (projectUpdated) isAction() {}
func (projectRemoved) isAction() {}
func (roleAppended) isAction()   {}
func (memberAppended) isAction() {}
func (userLoaded) isAction()     {}

func (p *Pipeline) apply(a action) {
	switch a := a.(type) {
	case articleAdded:
		p.cache.Articles.Upsert(a.article)
	case articleRemoved:
		p.cache.Articles.Remove(a.id)
	case articleLiked:
		p.cache.Articles.Patch(a.id, func(art domain.Article) domain.Article {
			if art.Likes.Contains(a.email) {
				return art
			}
			art.Likes.Users = append(append([]string(nil), art.Likes.Users...), a.email)
			art.Likes.Count++
			return art
		})
	case commentAdded:
		p.cache.Articles.Patch(a.id, func(art domain.Article) domain.Article {
			art.Comments = replaceComment(art.Comments, a.comment)
			return art
		})
	case eventAdded:
		p.cache.Events.Upsert(a.event)
	case eventUpdated:
		p.cache.Events.Patch(a.event.ID, func(domain.Event) domain.Event { return a.event })
	case eventRemoved:
		p.cache.Events.Remove(a.id)
	case projectAdded:
		p.cache.Projects.Upsert(a.project)
	case projectUpdated:
		p.cache.Projects.Patch(a.id, func(pr domain.Project) domain.Project {
			pr.Name = a.name
			pr.Description = a.description
			return pr
		})
	case projectRemoved:
		p.cache.Projects.Remove(a.id)
	case roleAppended:
		p.cache.Projects.Patch(a.id, func(pr domain.Project) domain.Project {
			pr.Roles = append(append([]domain.Role(nil), pr.Roles...), a.role)
			return pr
		})
	case memberAppended:
		p.cache.Projects.Patch(a.id, func(pr domain.Project) domain.Project {
			pr.Members = append(append([]string(nil), pr.Members...), a.member)
			return pr
		})
	case userLoaded:
		p.cache.Users.Upsert(a.user)
	}
}

// replaceComment drops any existing comment with the same text (exact,
// case-sensitive) and appends the new one. Posting identical text therefore
// moves the comment to the end rather than duplicating it.
func replaceComment(comments []domain.Comment, c domain.Comment) []domain.Comment {
	kept := make([]domain.Comment, 0, len(comments)+1)
	for _, existing := range comments {
		if existing.Text != c.Text {
			kept = append(kept, existing)
		}
	}
	return append(kept, c)
}
