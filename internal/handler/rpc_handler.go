package handler

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"claim-comments/internal/domain"
	"claim-comments/internal/middleware"
	"claim-comments/internal/service/comment"
)

type RPCHandler struct {
	commentService comment.Service
	status         *StatusHandler
	log            *zap.Logger
	methods        map[string]method
}

func NewRPCHandler(commentService comment.Service, status *StatusHandler, log *zap.Logger) *RPCHandler {
	h := &RPCHandler{
		commentService: commentService,
		status:         status,
		log:            log.Named("rpc"),
	}
	h.methods = map[string]method{
		"create_comment":     h.createComment,
		"get_claim_comments": h.getClaimComments,
		"get_comments_by_id": h.getCommentsByID,
		"delete_comment":     h.deleteComment,
		"hide_comments":      h.hideComments,
		"status":             h.statusMethod,
	}
	return h
}

// Serve answers a single JSON-RPC request. Protocol and method errors are
// returned in the body with HTTP 200.
func (h *RPCHandler) Serve(c *fiber.Ctx) error {
	locale := middleware.Locale(c)
	reply := func(id json.RawMessage, result any, err error) error {
		resp := rpcResponse{JSONRPC: "2.0", ID: id}
		if err != nil {
			resp.Error = newRPCError(locale, err)
		} else {
			resp.Result = result
		}
		return c.Status(fiber.StatusOK).JSON(resp)
	}

	body := bytes.TrimSpace(c.Body())
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		if len(body) > 0 && body[0] == '[' {
			return reply(nullID, nil, protocolError(domain.CodeInvalidRequest, "batch requests are not supported"))
		}
		return reply(nullID, nil, protocolError(domain.CodeParseError, "request body is not valid JSON"))
	}

	id := req.ID
	if len(id) == 0 {
		id = nullID
	}
	if req.Method == "" {
		return reply(id, nil, protocolError(domain.CodeInvalidRequest, "method is required"))
	}

	handle, ok := h.methods[req.Method]
	if !ok {
		return reply(id, nil, protocolError(domain.CodeMethodNotFound, "unknown method "+req.Method))
	}

	result, err := handle(c, req.Params)
	if err != nil {
		h.logFailure(c, req.Method, err)
	}
	return reply(id, result, err)
}

func (h *RPCHandler) createComment(c *fiber.Ctx, raw json.RawMessage) (any, error) {
	var input domain.CreateCommentInput
	if err := decodeParams(raw, &input); err != nil {
		return nil, err
	}
	return h.commentService.Create(c.UserContext(), input)
}

type claimCommentsParams struct {
	ClaimID  string   `json:"claim_id"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	TopLevel flexBool `json:"top_level"`
}

func (h *RPCHandler) getClaimComments(c *fiber.Ctx, raw json.RawMessage) (any, error) {
	var p claimCommentsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return h.commentService.List(c.UserContext(), domain.ListCommentsParams{
		ClaimID:  p.ClaimID,
		Page:     p.Page,
		PageSize: p.PageSize,
		TopLevel: bool(p.TopLevel),
	})
}

type commentIDsParams struct {
	CommentIDs []string `json:"comment_ids"`
}

func (h *RPCHandler) getCommentsByID(c *fiber.Ctx, raw json.RawMessage) (any, error) {
	var p commentIDsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	items, err := h.commentService.GetByIDs(c.UserContext(), p.CommentIDs)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"items": items}, nil
}

func (h *RPCHandler) deleteComment(c *fiber.Ctx, raw json.RawMessage) (any, error) {
	var input domain.DeleteCommentInput
	if err := decodeParams(raw, &input); err != nil {
		return nil, err
	}
	deleted, err := h.commentService.Delete(c.UserContext(), input)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"deleted": true, "comment_id": deleted.ID}, nil
}

func (h *RPCHandler) hideComments(c *fiber.Ctx, raw json.RawMessage) (any, error) {
	if !middleware.IsAdmin(c) {
		return nil, &domain.Error{Kind: domain.KindUnauthorized, Message: "an admin token is required"}
	}

	var input domain.HideCommentsInput
	if err := decodeParams(raw, &input); err != nil {
		return nil, err
	}
	hidden, err := h.commentService.Hide(c.UserContext(), input)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hidden))
	for _, cm := range hidden {
		ids = append(ids, cm.ID)
	}
	return fiber.Map{"hidden": ids}, nil
}

func (h *RPCHandler) statusMethod(*fiber.Ctx, json.RawMessage) (any, error) {
	return h.status.snapshot(), nil
}
