package handlers

import (
	"errors"
	"net/http"

	"github.com/pokernights/poker-tracker/middleware"
	"github.com/pokernights/poker-tracker/services"
)

const maxLogoSize = 5 << 20 // 5MB

type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(gs *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: gs}
}

// CreateHandler обрабатывает POST /api/groups/create. Создатель группы
// становится её владельцем.
func (h *GroupHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create a group")
		return
	}

	var input services.CreateGroupInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.OwnerID = &currentUserID

	group, err := h.groupService.CreateGroup(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusCreated, group)
}

// MyGroupsHandler обрабатывает GET /api/groups/my-groups
func (h *GroupHandler) MyGroupsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	groups, err := h.groupService.GetGroupsByUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, groups)
}

// MembersHandler обрабатывает GET /api/groups/{groupID}/members
func (h *GroupHandler) MembersHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getIDFromURL(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	members, err := h.groupService.GetGroupMembers(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, members)
}

// GamesHandler обрабатывает GET /api/groups/{groupID}/games — игры группы
// с порядковыми номерами.
func (h *GroupHandler) GamesHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getIDFromURL(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	games, err := h.groupService.GetGroupGames(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, games)
}

// OverviewHandler обрабатывает GET /api/groups/{groupID}/overview
func (h *GroupHandler) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getIDFromURL(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	overview, err := h.groupService.GetGroupOverview(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, overview)
}

// UploadLogoHandler обрабатывает POST /api/groups/{groupID}/logo
// (multipart/form-data, поле "logo").
func (h *GroupHandler) UploadLogoHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getIDFromURL(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	group, err := h.groupService.UploadGroupLogo(r.Context(), groupID, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, group)
}
