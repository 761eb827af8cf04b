package mutate

import (
	"context"
	"log"

	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

func (p *Pipeline) AddProject(ctx context.Context, who domain.Identity, pr domain.Project) (domain.Project, error) {
	pr.CreatorEmail = who.Email
	pr.AuthorName = who.DisplayName
	pr.AuthorAvatarURL = who.AvatarURL
	pr.CreatedAt = p.now()

	id, err := p.store.Add(ctx, domain.CollectionProjects, pr.DocData())
	if err != nil {
		log.Printf("add project: %v", err)
		return domain.Project{}, classify(err)
	}
	pr.ID = id
	p.apply(projectAdded{project: pr})
	return pr, nil
}

// FetchProject reads the project document directly, bypassing the cache.
func (p *Pipeline) FetchProject(ctx context.Context, id string) (domain.Project, error) {
	doc, err := p.store.Get(ctx, domain.CollectionProjects, id)
	if err != nil {
		return domain.Project{}, err
	}
	return domain.ProjectFromDoc(doc.ID, doc.Data), nil
}

func (p *Pipeline) UpdateProject(ctx context.Context, id, name, description string) error {
	err := p.store.Update(ctx, domain.CollectionProjects, id, []store.Update{
		{Path: "name", Value: name},
		{Path: "description", Value: description},
	})
	if err != nil {
		log.Printf("update project %s: %v", id, err)
		return classify(err)
	}
	p.apply(projectUpdated{id: id, name: name, description: description})
	return nil
}

func (p *Pipeline) DeleteProject(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, domain.CollectionProjects, id); err != nil {
		log.Printf("delete project %s: %v", id, err)
		return classify(err)
	}
	p.apply(projectRemoved{id: id})
	return nil
}

// AddProjectRole appends to the project's role list. Roles carry no dedup
// constraint; the read-append-write is the documented lost-update window.
func (p *Pipeline) AddProjectRole(ctx context.Context, projectID string, role domain.Role) error {
	doc, err := p.store.Get(ctx, domain.CollectionProjects, projectID)
	if err != nil {
		log.Printf("add role to project %s: %v", projectID, err)
		return err
	}
	project := domain.ProjectFromDoc(doc.ID, doc.Data)

	roles := make([]any, 0, len(project.Roles)+1)
	for _, r := range project.Roles {
		roles = append(roles, r.DocData())
	}
	roles = append(roles, role.DocData())

	err = p.store.Update(ctx, domain.CollectionProjects, projectID, []store.Update{
		{Path: "roles", Value: roles},
	})
	if err != nil {
		log.Printf("add role to project %s: %v", projectID, err)
		return classify(err)
	}
	p.apply(roleAppended{id: projectID, role: role})
	return nil
}

func (p *Pipeline) AddProjectMember(ctx context.Context, projectID, member string) error {
	doc, err := p.store.Get(ctx, domain.CollectionProjects, projectID)
	if err != nil {
		log.Printf("add member to project %s: %v", projectID, err)
		return err
	}
	project := domain.ProjectFromDoc(doc.ID, doc.Data)

	members := append(append([]string(nil), project.Members...), member)
	err = p.store.Update(ctx, domain.CollectionProjects, projectID, []store.Update{
		{Path: "members", Value: members},
	})
	if err != nil {
		log.Printf("add member to project %s: %v", projectID, err)
		return classify(err)
	}
	p.apply(memberAppended{id: projectID, member: member})
	return nil
}
