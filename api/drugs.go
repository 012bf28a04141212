package api

import (
	"errors"
	"io"
	"net/http"

	"medivize/apperr"
	"medivize/locale"
	"medivize/models"

	"github.com/gin-gonic/gin"
)

// maxJSONBody entspricht dem Limit des Altsystems für JSON-Bodies.
const maxJSONBody = 10 << 20

func setupDrugRoutes(rg *gin.RouterGroup, catalog DrugCatalog, resp responder) {
	rg.GET("", func(c *gin.Context) {
		drugs, err := catalog.List(c.Request.Context())
		if err != nil {
			resp.fail(c, err, locale.ListFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": drugs, "count": len(drugs)})
	})

	rg.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		drugs, err := catalog.Search(c.Request.Context(), query)
		if err != nil {
			resp.fail(c, err, locale.SearchFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": drugs, "count": len(drugs), "query": query})
	})

	rg.GET("/by-name/:name", func(c *gin.Context) {
		drug, err := catalog.GetByName(c.Request.Context(), c.Param("name"))
		if err != nil {
			resp.fail(c, err, locale.GetFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": drug})
	})

	rg.POST("", func(c *gin.Context) {
		in, ok := bindDrugInput(c, resp)
		if !ok {
			return
		}
		name, err := catalog.Create(c.Request.Context(), in)
		if err != nil {
			resp.fail(c, err, locale.CreateFailed)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": locale.Text(locale.CreateSucceeded),
			"data":    gin.H{"name": name},
		})
	})

	rg.PUT("/by-name/:name", func(c *gin.Context) {
		in, ok := bindDrugInput(c, resp)
		if !ok {
			return
		}
		if err := catalog.UpdateByName(c.Request.Context(), c.Param("name"), in); err != nil {
			resp.fail(c, err, locale.UpdateFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": locale.Text(locale.UpdateSucceeded)})
	})

	rg.DELETE("/by-name/:name", func(c *gin.Context) {
		if err := catalog.DeleteByName(c.Request.Context(), c.Param("name")); err != nil {
			resp.fail(c, err, locale.DeleteFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": locale.Text(locale.DeleteSucceeded)})
	})
}

// bindDrugInput liest den JSON-Body. Ein leerer Body zählt als leere Eingabe,
// damit die Pflichtfeldprüfung des Katalogs greift.
func bindDrugInput(c *gin.Context, resp responder) (models.DrugInput, bool) {
	var in models.DrugInput
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		resp.fail(c, apperr.Wrap(apperr.InvalidArgument, locale.Text(locale.InvalidBody), err), locale.InvalidBody)
		return models.DrugInput{}, false
	}
	return in, true
}
