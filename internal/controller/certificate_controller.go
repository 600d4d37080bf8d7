package controller

import (
	"mentor_lms_backend/internal/service"
	"mentor_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// IssueCertificate godoc
// @Summary 申请结业证书
// @Description 课程全部章节完成后签发，重复申请返回已有证书
// @Tags 证书
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.IssueResult} "已签发过"
// @Success 201 {object} util.Response{data=service.IssueResult} "新签发"
// @Failure 403 {object} util.Response "未分配该课程"
// @Failure 409 {object} util.Response "课程未完成"
// @Router /student/courses/{courseId}/certificate [post]
func (c *CertificateController) IssueCertificate(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	result, err := c.CertificateService.IssueCertificate(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	if result.Created {
		util.Created(ctx, result)
		return
	}
	util.Success(ctx, result)
}

// ListMyCertificates godoc
// @Summary 我的证书
// @Tags 证书
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.CertificateView}
// @Router /student/certificates [get]
func (c *CertificateController) ListMyCertificates(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	list, err := c.CertificateService.ListStudentCertificates(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, list)
}

// VerifyCertificate godoc
// @Summary 校验证书编号
// @Tags 证书
// @Produce  json
// @Param number path string true "证书编号"
// @Success 200 {object} util.Response{data=service.CertificateView}
// @Failure 404 {object} util.Response "证书不存在"
// @Router /certificates/verify/{number} [get]
func (c *CertificateController) VerifyCertificate(ctx *gin.Context) {
	view, err := c.CertificateService.VerifyCertificate(ctx.Request.Context(), ctx.Param("number"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
