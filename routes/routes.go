package routes

import (
    "log"
    "time"

    "github.com/davidrecordon/dawnward-sub002/config"
    "github.com/davidrecordon/dawnward-sub002/controllers"
    "github.com/davidrecordon/dawnward-sub002/middlewares"
    "github.com/davidrecordon/dawnward-sub002/services"

    "github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
    r := gin.Default()

    tripSvc := services.NewTripService(config.DB)
    actualSvc := services.NewActualService(config.DB)
    recalcSvc := services.NewRecalcService(config.DB)
    oauth := services.NewGoogleOAuth()
    calSvc := services.NewCalendarService(config.DB, oauth)

    hub := services.NewRealtimeHub()
    pushSvc, err := services.NewPushService(config.DB)
    if err != nil {
        log.Printf("push disabled: %v", err)
        pushSvc = nil
    }
    services.InitEventDeps(hub, pushSvc)

    notifSvc := services.NewNotificationService(config.DB, services.NewSESSender(), pushSvc)

    trips := controllers.NewTripController(tripSvc, recalcSvc, calSvc)
    actuals := controllers.NewActualController(tripSvc, actualSvc)
    share := controllers.NewShareController(tripSvc)
    cal := controllers.NewCalendarController(tripSvc, calSvc)
    cron := controllers.NewCronController(notifSvc)
    gauth := controllers.NewGoogleAuthController(oauth)
    rt := controllers.NewRealtimeController(hub)

    // Public auth routes
    auth := r.Group("/auth")
    {
        auth.POST("/register", controllers.Register)
        auth.POST("/login", controllers.Login)
        auth.GET("/google/login", gauth.LoginRedirect)
        auth.GET("/google/callback", gauth.Callback)
        auth.GET("/google/calendar", gauth.CalendarConsent)
    }

    // Trip creation works anonymously; everything else needs a session
    r.POST("/api/trips", middlewares.OptionalAuth(), trips.Create)

    api := r.Group("/api")
    api.Use(middlewares.AuthMiddleware())
    {
        api.GET("/trips", trips.List)
        api.GET("/trips/:id", trips.Get)
        api.PUT("/trips/:id", trips.Update)
        api.DELETE("/trips/:id", trips.Delete)
        api.POST("/trips/:id/share", trips.Share)
        api.DELETE("/trips/:id/share", trips.Unshare)
        api.POST("/trips/:id/recalculate", trips.Recalculate)

        api.POST("/trips/:id/actuals", actuals.Record)
        api.GET("/trips/:id/actuals", actuals.List)

        api.GET("/user/preferences", controllers.GetPreferences)
        api.PUT("/user/preferences", controllers.UpdatePreferences)
        api.POST("/user/notifications/toggle", controllers.ToggleNotifications)

        api.POST("/calendar/sync/:tripId", cal.Sync)
        api.DELETE("/calendar/sync/:tripId", cal.Unsync)
    }

    // device registration only makes sense when SNS is configured
    if pushSvc != nil {
        devices := controllers.NewDeviceController(pushSvc)
        r.POST("/api/user/devices", middlewares.AuthMiddleware(), devices.Register)
    }

    // public read-only share view behind the sliding-window limiter
    limiter := middlewares.NewRateLimiter(30, time.Minute)
    r.GET("/api/share/:code", limiter.Middleware(), share.GetByCode)

    // scheduler-invoked email dispatch
    r.POST("/api/cron/notifications", middlewares.CronAuth(), cron.DispatchNotifications)

    // websocket updates
    r.GET("/ws/schedule", middlewares.AuthMiddleware(), rt.ScheduleWS)

    // Protected user routes
    user := r.Group("/user")
    user.Use(middlewares.AuthMiddleware())
    {
        user.GET("/profile", controllers.GetProfile)
        user.PUT("/profile", controllers.UpdateProfile)
        user.DELETE("/profile", controllers.DeleteAccount)
    }

    return r
}
